package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetmcp/internal/instrumentation"
)

const (
	// DefaultHTTPAddr is where the streamable HTTP transport listens.
	DefaultHTTPAddr = "127.0.0.1:8080"

	// MCPEndpointPath serves the MCP streamable HTTP protocol.
	MCPEndpointPath = "/mcp"
)

// HTTPServerConfig holds configuration for the streamable HTTP transport.
type HTTPServerConfig struct {
	// Addr must name a loopback host; the server holds a single user's
	// Google credentials.
	Addr string

	MCPServer *mcpserver.MCPServer
	Health    *HealthChecker
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// HTTPServer serves MCP over streamable HTTP plus the health endpoints.
type HTTPServer struct {
	addr    string
	handler http.Handler
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// NewHTTPServer builds the router. It fails for non-loopback addresses.
func NewHTTPServer(config HTTPServerConfig) (*HTTPServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}
	if err := validateLoopbackAddr(config.Addr); err != nil {
		return nil, err
	}
	if config.MCPServer == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &HTTPServer{
		addr:    config.Addr,
		metrics: config.Metrics,
		logger:  config.Logger,
		ready:   make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.observe)
	// Browsers may only reach the endpoint from local pages.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
	}))

	if config.Health != nil {
		r.Method(http.MethodGet, "/healthz", config.Health.LivenessHandler())
		r.Method(http.MethodGet, "/readyz", config.Health.ReadinessHandler())
		r.Method(http.MethodGet, "/healthz/detailed", config.Health.DetailedHealthHandler())
	}

	r.Handle(MCPEndpointPath, mcpserver.NewStreamableHTTPServer(config.MCPServer,
		mcpserver.WithEndpointPath(MCPEndpointPath),
	))

	s.handler = r
	return s, nil
}

// Handler returns the router.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Run listens and serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("streamable HTTP server listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("endpoint", MCPEndpointPath))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down streamable HTTP server")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Ready is closed once the server is listening.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address once listening, else the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// observe logs and records every request under its route pattern.
func (s *HTTPServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, route, status, duration)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", route),
			slog.Int("status", status),
			slog.Duration("duration", duration),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// validateLoopbackAddr allows only localhost and loopback IPs. An empty host
// would bind every interface.
func validateLoopbackAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("listen address %q must be on a loopback host (localhost, 127.0.0.1, ::1)", addr)
}
