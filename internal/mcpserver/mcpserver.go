package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/panbanda/lcom/internal/cache"
	"github.com/panbanda/lcom/internal/service/analysis"
	"github.com/panbanda/lcom/pkg/config"
)

// Server wraps the MCP server and registers the lcom tools.
type Server struct {
	server *mcp.Server
	config *config.Config
	cache  *cache.Cache
	logger *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration tools run with.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithCache shares a result cache between tool calls.
func WithCache(c *cache.Cache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithLogger sets the diagnostic logger. It must not write to stdout,
// which carries the protocol.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new MCP server with all lcom tools registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "lcom",
			Version: version,
		},
		nil,
	)

	s := &Server{
		server: server,
		config: config.DefaultConfig(),
		logger: zap.NewNop(),
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

func (s *Server) service() *analysis.Service {
	return analysis.New(
		analysis.WithConfig(s.config),
		analysis.WithCache(s.cache),
		analysis.WithLogger(s.logger),
	)
}

// registerTools adds the lcom tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_lcom",
		Description: describeAnalyzeLCOM(),
	}, s.handleAnalyzeLCOM)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "explain_lcom",
		Description: describeExplainLCOM(),
	}, s.handleExplainLCOM)
}
