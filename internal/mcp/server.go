// Package mcp exposes the molecule session to AI agents over the Model
// Context Protocol.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
	"github.com/ziadkadry99/molscope/internal/chat"
	"github.com/ziadkadry99/molscope/internal/examples"
	"github.com/ziadkadry99/molscope/internal/search"
	"github.com/ziadkadry99/molscope/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Session is the part of the coordinator the tools drive.
type Session interface {
	State() session.State
	LoadByID(ctx context.Context, id string) error
	LoadFromText(ctx context.Context, text string) error
	SetStyle(kind chainstyle.Kind) error
}

// Asker answers questions about the loaded structure.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (*chat.Reply, error)
}

// Server wraps an MCP server that exposes the session tools.
type Server struct {
	session  Session
	search   search.Backend
	chat     Asker
	examples *examples.Catalog
	minQuery int
	mcp      *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithMinQueryLength sets the shortest query search_structures accepts.
// Non-positive values keep the default.
func WithMinQueryLength(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.minQuery = n
		}
	}
}

// NewServer creates an MCP server. search, chat and catalog may be nil;
// the matching tools then report that they are not configured.
func NewServer(sess Session, backend search.Backend, asker Asker, catalog *examples.Catalog, opts ...Option) *Server {
	s := &Server{
		session:  sess,
		search:   backend,
		chat:     asker,
		examples: catalog,
		minQuery: search.DefaultMinQueryLength,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"molscope",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(loadStructureTool, s.handleLoadStructure)
	s.mcp.AddTool(searchStructuresTool, s.handleSearchStructures)
	s.mcp.AddTool(setStyleTool, s.handleSetStyle)
	s.mcp.AddTool(getSessionTool, s.handleGetSession)
	s.mcp.AddTool(askAboutStructureTool, s.handleAskAboutStructure)
	s.mcp.AddTool(listExamplesTool, s.handleListExamples)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
