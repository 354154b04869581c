package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/mcp"
)

func newTestMCPMux(t *testing.T, svc *mockMemberService) *http.ServeMux {
	t.Helper()
	logger := zap.NewNop()
	mux := http.NewServeMux()
	NewMCPHandler(mcp.NewMemberServer("1.0.0", svc, logger), logger).RegisterRoutes(mux)
	return mux
}

func TestNewMCPHandler(t *testing.T) {
	logger := zap.NewNop()
	handler := NewMCPHandler(mcp.NewServer("test", "1.0.0", logger), logger)

	require.NotNil(t, handler)
	assert.NotNil(t, handler.httpServer)
	assert.Same(t, logger, handler.logger)
}

func TestMCPHandler_RejectsNonPOST(t *testing.T) {
	mux := newTestMCPMux(t, &mockMemberService{})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, "/mcp", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "POST", rec.Header().Get("Allow"))
	}
}

func TestMCPHandler_ToolCall(t *testing.T) {
	svc := &mockMemberService{}
	mux := newTestMCPMux(t, svc)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"filter_members","arguments":{"include":{"Gender":["FEMALE"]},"limit":25}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Result struct {
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Result.IsError)
	assert.Equal(t, uint64(25), svc.gotPage.Limit)
	assert.Equal(t, []any{"FEMALE"}, svc.gotFilter.Include["Gender"])
}
