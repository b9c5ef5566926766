package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/meetmcp/internal/config"
	"github.com/teemow/meetmcp/internal/google"
	"github.com/teemow/meetmcp/internal/instrumentation"
	"github.com/teemow/meetmcp/internal/logging"
	"github.com/teemow/meetmcp/internal/server"
	"github.com/teemow/meetmcp/internal/tools/meet_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

type serveOptions struct {
	credentialOptions

	transport   string
	httpAddr    string
	readOnly    bool
	metricsAddr string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that exposes Google Meet
meeting tools to AI assistants.

Supports two transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP on a loopback address, with health
    endpoints and a separate Prometheus metrics listener

Authorization:
  The OAuth client credentials file is read at startup; a missing or malformed
  file is fatal. The first tool call without a usable token opens the Google
  consent page in a browser. Run "meetmcp auth" to authorize ahead of time.

Read-only mode:
  --read-only registers only list_meetings, get_meeting, check_availability
  and get_free_busy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http transport, loopback only)")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Only register tools that do not change the calendar")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address (streamable-http transport with the prometheus exporter). Empty disables it.")

	return cmd
}

// checkTransport rejects unknown transports and exporters that would write
// into the stdio protocol stream.
func checkTransport(transport string, instrConfig instrumentation.Config) error {
	switch transport {
	case transportStdio:
		if instrConfig.Enabled &&
			(instrConfig.MetricsExporter == instrumentation.ExporterStdout || instrConfig.TracingExporter == instrumentation.ExporterStdout) {
			return errors.New("the stdout exporters cannot be used with the stdio transport")
		}
		return nil
	case transportStreamableHTTP:
		return nil
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}
}

func runServe(ctx context.Context, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)

	instrConfig, err := instrumentation.LoadConfig()
	if err != nil {
		return err
	}
	instrConfig.ServiceVersion = version
	if err := checkTransport(opts.transport, instrConfig); err != nil {
		return err
	}

	reg, err := google.LoadClientRegistration(cfg.CredentialsPath)
	if err != nil {
		if google.IsConfigError(err) {
			logger.Error("OAuth client credentials unusable", logging.Path(cfg.CredentialsPath), logging.Err(err))
		}
		return err
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	store := google.NewTokenStore(cfg.TokenPath, google.WithLogger(logger))
	flow := newFlow(cfg, store, logger, provider.Metrics())

	serverContext, err := server.NewServerContext(ctx, server.Config{
		Registration: reg,
		Store:        store,
		Authorizer:   flow,
		OpenBrowser:  cfg.OpenBrowser,
		ReadOnly:     opts.readOnly,
	}, server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}

	mcpSrv := mcpserver.NewMCPServer(config.AppName, version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := meet_tools.RegisterMeetTools(mcpSrv, serverContext, opts.readOnly); err != nil {
		return fmt.Errorf("failed to register meeting tools: %w", err)
	}

	logger.Info("starting meetmcp",
		slog.String("version", version),
		slog.String("transport", opts.transport),
		slog.Bool("read_only", opts.readOnly),
		logging.Path(store.Path()))

	switch opts.transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(ctx, mcpSrv, serverContext, provider, opts, logger)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, opts serveOptions, logger *slog.Logger) error {
	metricsServer, err := startMetricsServer(provider, opts.metricsAddr, logger)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	health := server.NewHealthChecker(sc, version)
	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Addr:      opts.httpAddr,
		MCPServer: mcpSrv,
		Health:    health,
		Metrics:   sc.Metrics(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-httpServer.Ready():
			health.SetReady(true)
			logger.Info("MCP endpoint listening", slog.String("url", "http://"+httpServer.Addr()+server.MCPEndpointPath))
		case <-ctx.Done():
		}
	}()

	return httpServer.Run(ctx)
}

// startMetricsServer starts the Prometheus listener when the provider
// exports to Prometheus and an address is set. It returns nil otherwise.
func startMetricsServer(provider *instrumentation.Provider, addr string, logger *slog.Logger) (*server.MetricsServer, error) {
	if addr == "" || !provider.Enabled() || provider.PrometheusHandler() == nil {
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		metricsErr <- metricsServer.Start()
	}()

	select {
	case <-metricsServer.Ready():
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, errors.New("metrics server startup timed out")
	}
}
