package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/logging"
)

// maxLoggedArgument bounds the logged size of one tool argument.
const maxLoggedArgument = 200

// MCPRequestLogger returns middleware that logs MCP JSON-RPC tool calls and
// their outcome. Pass nil logger to disable logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var rpcReq jsonRPCRequest
			if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil {
				logger.Debug("Failed to parse MCP request JSON", zap.Error(err))
			}
			toolName := rpcReq.Params.Name
			requestID := RequestID(r.Context())

			logger.Debug("MCP request",
				zap.String("request_id", requestID),
				zap.String("method", rpcReq.Method),
				zap.String("tool", toolName),
				zap.Any("arguments", sanitizeArguments(rpcReq.Params.Arguments)),
			)

			recorder := &mcpResponseRecorder{ResponseWriter: w, body: &bytes.Buffer{}}
			start := time.Now()
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)

			var rpcResp jsonRPCResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &rpcResp); err != nil {
				logger.Debug("Failed to parse MCP response JSON", zap.Error(err))
				return
			}
			logMCPOutcome(logger, &rpcResp, requestID, toolName, duration)
		})
	}
}

// logMCPOutcome logs transport failures at warn, tool errors (a caller
// mistake such as an unknown attribute) at info and successes at debug.
func logMCPOutcome(logger *zap.Logger, resp *jsonRPCResponse, requestID, tool string, d time.Duration) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("tool", tool),
		zap.Duration("duration", d),
	}
	switch {
	case resp.Error != nil:
		logger.Warn("MCP response error", append(fields,
			zap.Int("error_code", resp.Error.Code),
			zap.String("error_message", resp.Error.Message))...)
	case resp.Result.IsError:
		logger.Info("MCP tool error", fields...)
	default:
		logger.Debug("MCP response success", fields...)
	}
}

type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type jsonRPCResponse struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// mcpResponseRecorder tees the response body for inspection.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *mcpResponseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var sensitiveArgumentKeys = []string{"password", "secret", "token", "key", "credential"}

func isSensitiveArgument(name string) bool {
	name = strings.ToLower(name)
	for _, k := range sensitiveArgumentKeys {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// sanitizeArguments redacts sensitive fields and bounds the size of each
// argument. Nested filters are logged as truncated JSON text.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	result := make(map[string]any, len(args))
	for k, v := range args {
		if isSensitiveArgument(k) {
			result[k] = logging.RedactedText
			continue
		}

		switch val := v.(type) {
		case string:
			result[k] = logging.TruncateString(val, maxLoggedArgument)
		case map[string]any, []any:
			encoded, err := json.Marshal(val)
			if err != nil {
				result[k] = "[unencodable]"
				continue
			}
			result[k] = logging.TruncateString(string(encoded), maxLoggedArgument)
		default:
			result[k] = v
		}
	}
	return result
}
