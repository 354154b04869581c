package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chingu-voyages/member-demographics/pkg/services"
)

type healthResult struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Table        string    `json:"table"`
	CacheReady   bool      `json:"cache_ready"`
	CacheBuiltAt time.Time `json:"cache_built_at,omitzero"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server version, the queried table and cache state.
func RegisterHealthTool(s *server.MCPServer, version string, members services.MemberService) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and the queried members table"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := members.Status()
		return jsonResult(healthResult{
			Status:       status.Status,
			Version:      version,
			Table:        status.Table,
			CacheReady:   status.CacheReady,
			CacheBuiltAt: status.CacheBuilt,
		})
	})
}
