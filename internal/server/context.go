package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/meetmcp/internal/calendar"
	"github.com/teemow/meetmcp/internal/google"
	"github.com/teemow/meetmcp/internal/instrumentation"
	"github.com/teemow/meetmcp/internal/logging"
)

// ErrAuthenticationFailed is returned by CalendarClient when neither the
// stored credentials nor a fresh authorization flow produced usable tokens.
var ErrAuthenticationFailed = errors.New("authentication with Google failed")

// Authorizer runs an interactive authorization flow; *authflow.Flow satisfies it.
type Authorizer interface {
	Run(ctx context.Context, openBrowser bool) (*google.CredentialBundle, error)
}

// ClientFactory builds a Calendar client on top of a token source.
type ClientFactory func(ctx context.Context, ts oauth2.TokenSource) (*calendar.Client, error)

// Config wires the authentication pieces into a ServerContext.
type Config struct {
	Registration *google.ClientRegistration
	Store        *google.TokenStore
	Authorizer   Authorizer

	// OpenBrowser is passed to the Authorizer when a flow is needed.
	OpenBrowser bool

	// ReadOnly limits the tool table to non-mutating tools.
	ReadOnly bool
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	registration *google.ClientRegistration
	store        *google.TokenStore
	authorizer   Authorizer
	openBrowser  bool
	readOnly     bool
	newClient    ClientFactory
	logger       *slog.Logger

	authMu sync.Mutex // one authentication attempt at a time

	mu          sync.RWMutex
	client      *calendar.Client
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	shutdown    bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		sc.logger = logger
	}
}

// WithClientFactory replaces how Calendar clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(sc *ServerContext) {
		sc.newClient = f
	}
}

// NewServerContext creates a new server context. No credentials are touched
// until the first tool asks for a Calendar client.
func NewServerContext(ctx context.Context, cfg Config, opts ...Option) (*ServerContext, error) {
	if cfg.Registration == nil {
		return nil, fmt.Errorf("client registration is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if cfg.Authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		registration: cfg.Registration,
		store:        cfg.Store,
		authorizer:   cfg.Authorizer,
		openBrowser:  cfg.OpenBrowser,
		readOnly:     cfg.ReadOnly,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.newClient == nil {
		sc.newClient = sc.defaultClient
	}
	return sc, nil
}

func (sc *ServerContext) defaultClient(ctx context.Context, ts oauth2.TokenSource) (*calendar.Client, error) {
	return calendar.NewClient(ctx, ts,
		calendar.WithLogger(sc.logger),
		calendar.WithMetrics(sc.Metrics()))
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// ReadOnly reports whether mutating tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// CalendarClient returns the cached Calendar client, authenticating first
// when needed: stored tokens are loaded and refreshed if expired, and an
// authorization flow runs when that fails.
func (sc *ServerContext) CalendarClient(ctx context.Context) (*calendar.Client, error) {
	if c := sc.cachedClient(); c != nil {
		return c, nil
	}

	sc.authMu.Lock()
	defer sc.authMu.Unlock()

	// Another caller may have finished authenticating while we waited.
	if c := sc.cachedClient(); c != nil {
		return c, nil
	}
	if sc.IsShutdown() {
		return nil, fmt.Errorf("server is shutting down")
	}

	bundle, err := sc.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	// Token refreshes outlive the tool call, so they follow the server context.
	ts := sc.store.TokenSource(sc.ctx, sc.registration, bundle)
	client, err := sc.newClient(sc.ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	sc.mu.Lock()
	sc.client = client
	sc.mu.Unlock()
	return client, nil
}

func (sc *ServerContext) cachedClient() *calendar.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.client
}

// ResetCalendarClient drops the cached client so the next call authenticates
// again. Tools call it when Google rejects the credentials.
func (sc *ServerContext) ResetCalendarClient() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.client = nil
}

func (sc *ServerContext) authenticate(ctx context.Context) (*google.CredentialBundle, error) {
	bundle, err := sc.store.Load()
	switch {
	case err != nil:
		sc.logger.Info("no usable stored credentials", logging.Path(sc.store.Path()), logging.Err(err))
	case sc.store.IsValid(bundle):
		return bundle, nil
	case bundle.RefreshToken != "":
		refreshed, rerr := sc.store.Refresh(ctx, bundle, sc.registration)
		if rerr == nil {
			sc.Metrics().RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
			return refreshed, nil
		}
		sc.Metrics().RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		sc.logger.Warn("stored credentials could not be refreshed", logging.Err(rerr))
	default:
		sc.logger.Info("stored credentials are incomplete", logging.Path(sc.store.Path()))
	}

	bundle, err = sc.authorizer.Run(ctx, sc.openBrowser)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return bundle, nil
}

// Authenticated reports whether usable credentials are on disk, without
// refreshing or starting a flow.
func (sc *ServerContext) Authenticated() bool {
	if sc.cachedClient() != nil {
		return true
	}
	bundle, err := sc.store.Load()
	if err != nil {
		return false
	}
	return sc.store.IsValid(bundle) || bundle.RefreshToken != ""
}

// SetMetrics sets the metrics recorder used by tools and new clients.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder; nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the tool audit logger.
func (sc *ServerContext) SetAuditLogger(a *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = a
}

// AuditLogger returns the tool audit logger; nil when auditing is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
