package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/asaclean/pkg/config"
)

// Server wraps the MCP server and registers the asaclean tools.
type Server struct {
	server *mcp.Server
	config *config.Config
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the base configuration tool calls start from.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithLogger sets the logger used by cleanup runs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server with all asaclean tools registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "asaclean",
			Version: version,
		},
		nil,
	)

	s := &Server{
		server: server,
		config: config.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

const (
	toolCleanup        = "cleanup_config"
	toolReferenceGraph = "reference_graph"
)

// toolDefinitions describes every tool the server registers, in
// registration order.
func toolDefinitions() []*mcp.Tool {
	return []*mcp.Tool{
		{Name: toolCleanup, Description: describeCleanup()},
		{Name: toolReferenceGraph, Description: describeReferenceGraph()},
	}
}

func (s *Server) registerTools() {
	for _, tool := range toolDefinitions() {
		switch tool.Name {
		case toolCleanup:
			mcp.AddTool(s.server, tool, s.handleCleanup)
		case toolReferenceGraph:
			mcp.AddTool(s.server, tool, s.handleReferenceGraph)
		}
	}
}
