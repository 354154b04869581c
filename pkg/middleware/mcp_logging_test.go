package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serveMCP(t *testing.T, reqBody, respBody string) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(respBody))
	})
	wrapped := MCPRequestLogger(zap.New(core))(handler)

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
	req = req.WithContext(WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, respBody, rec.Body.String())
	return logs
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs successful tool call", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"filter_members","arguments":{"include":{"Gender":["FEMALE"]},"limit":10}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`)

		require.Equal(t, 2, logs.Len())
		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "filter_members", requestLog.ContextMap()["tool"])
		assert.Equal(t, "req-1", requestLog.ContextMap()["request_id"])

		args, ok := requestLog.ContextMap()["arguments"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, `{"Gender":["FEMALE"]}`, args["include"])

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response success", responseLog.Message)
		assert.Equal(t, "filter_members", responseLog.ContextMap()["tool"])
		assert.NotNil(t, responseLog.ContextMap()["duration"])
	})

	t.Run("logs json-rpc error", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"unique_values","arguments":{"attribute":"Gender"}}}`,
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"warehouse unavailable"}}`)

		require.Equal(t, 2, logs.Len())
		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response error", responseLog.Message)
		assert.Equal(t, int64(-32603), responseLog.ContextMap()["error_code"])
		assert.Equal(t, "warehouse unavailable", responseLog.ContextMap()["error_message"])
	})

	t.Run("logs tool result error", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"count_values","arguments":{"attribute":"Nope"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"unknown attribute"}]}}`)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "MCP tool error", logs.All()[1].Message)
	})

	t.Run("non tool call has empty tool name", func(t *testing.T) {
		logs := serveMCP(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
			`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "tools/list", logs.All()[0].ContextMap()["method"])
		assert.Equal(t, "", logs.All()[0].ContextMap()["tool"])
	})

	t.Run("malformed request still reaches handler", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusBadRequest)
		})
		core, _ := observer.New(zapcore.DebugLevel)
		wrapped := MCPRequestLogger(zap.New(core))(handler)

		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("not json"))
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("nil logger passes through", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		wrapped := MCPRequestLogger(nil)(handler)

		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}

func TestSanitizeArguments(t *testing.T) {
	assert.Nil(t, sanitizeArguments(nil))

	got := sanitizeArguments(map[string]any{
		"attribute":  "Gender",
		"api_key":    "abc",
		"password":   "hunter2",
		"limit":      float64(5),
		"long":       strings.Repeat("x", 300),
		"exclude":    map[string]any{"Role": []any{"Developer"}},
		"start_date": "2024-01-01",
	})

	assert.Equal(t, "Gender", got["attribute"])
	assert.Equal(t, "[REDACTED]", got["api_key"])
	assert.Equal(t, "[REDACTED]", got["password"])
	assert.Equal(t, float64(5), got["limit"])
	assert.Equal(t, strings.Repeat("x", maxLoggedArgument)+"...", got["long"])
	assert.Equal(t, `{"Role":["Developer"]}`, got["exclude"])
	assert.Equal(t, "2024-01-01", got["start_date"])
}
