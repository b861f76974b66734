package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/query"
	"github.com/apresai/mulmoprep/internal/script"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds server configuration.
type Config struct {
	Name    string
	Version string
	// Transport is "stdio" (default) or "http" (streamable HTTP). Only
	// stdio accepts local file paths as script sources.
	Transport string
	Addr      string
	// APIKey is the bearer token /mcp requires. Mandatory for http.
	APIKey string
	// Provider and Model are used when a tool call does not name them.
	Provider       llm.Provider
	Model          string
	FetchMaxLength int
}

// Deps are the collaborators the tools call into.
type Deps struct {
	Loader  *script.Loader
	LLM     llm.Client
	Fetcher query.Fetcher
}

// Server is the MCP server exposing the script tools.
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	handlers *Handlers
	auth     *APIKeyAuth
	log      *slog.Logger
}

// New creates and configures the MCP server.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Loader == nil || deps.LLM == nil || deps.Fetcher == nil {
		return nil, errors.New("mcpserver: loader, llm client and fetcher are required")
	}
	if cfg.Name == "" {
		cfg.Name = "mulmoprep"
	}
	switch cfg.Transport {
	case "":
		cfg.Transport = TransportStdio
	case TransportStdio, TransportHTTP:
	default:
		return nil, fmt.Errorf("mcpserver: unknown transport %q", cfg.Transport)
	}
	auth := NewAPIKeyAuth(cfg.APIKey)
	if cfg.Transport == TransportHTTP && auth == nil {
		return nil, errors.New("mcpserver: an API key is required for the http transport")
	}

	handlers := NewHandlers(deps, cfg, logger)

	mcpServer := server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.instrument(tools[0].Name, handlers.HandleProcessScript))
	mcpServer.AddTool(tools[1], handlers.instrument(tools[1].Name, handlers.HandleListProfiles))
	mcpServer.AddTool(tools[2], handlers.instrument(tools[2].Name, handlers.HandleSummarizeScript))
	mcpServer.AddTool(tools[3], handlers.instrument(tools[3].Name, handlers.HandleQueryScript))
	mcpServer.AddTool(tools[4], handlers.instrument(tools[4].Name, handlers.HandleFetchReference))

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		handlers: handlers,
		auth:     auth,
		log:      logger,
	}, nil
}

// Handler returns the HTTP routes: /mcp, /metrics and /healthz. /mcp
// requires the API key when one is configured.
func (s *Server) Handler() http.Handler {
	var mcpHandler http.Handler = server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	)
	if s.auth != nil {
		mcpHandler = s.auth.Middleware(mcpHandler)
	}
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return otelhttp.NewHandler(mux, "mcp")
}

// Start serves until ctx is cancelled (HTTP) or stdin closes (stdio).
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Transport == TransportStdio {
		s.log.Info("Starting MCP server", "transport", "stdio")
		return server.ServeStdio(s.mcp)
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting MCP server", "transport", TransportHTTP, "addr", s.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("mcp server: %w", err)
	case <-ctx.Done():
		s.log.Info("Shutdown signal received, draining requests...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcp server shutdown: %w", err)
		}
		s.log.Info("Shutdown complete")
		return nil
	}
}
