package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/mcp/tools"
	"github.com/chingu-voyages/member-demographics/pkg/services"
)

// ServerName identifies the MCP server to clients.
const ServerName = "member-demographics"

const instructions = `Read-only access to cleaned Chingu member demographics.
Call list_attributes first, then unique_values to find legal filter values.
filter_members and country_counts reject values that are not known values of an attribute.`

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance with no tools.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// NewMemberServer creates an MCP server exposing the member query tools.
func NewMemberServer(version string, members services.MemberService, logger *zap.Logger) *Server {
	s := NewServer(ServerName, version, logger)
	tools.RegisterMemberTools(s.mcp, &tools.MemberToolDeps{
		Members: members,
		Logger:  logger.Named("mcp-tools"),
	})
	tools.RegisterHealthTool(s.mcp, version, members)
	return s
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
