package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/teemow/meetmcp/internal/google"
	"github.com/teemow/meetmcp/internal/instrumentation"
	"github.com/teemow/meetmcp/internal/logging"
)

// Defaults for the loopback listener.
const (
	DefaultHost      = "localhost"
	DefaultBasePort  = 3000
	DefaultPortRange = 10
	DefaultTimeout   = 5 * time.Minute

	// CallbackPath is where the provider redirects after consent.
	CallbackPath = "/oauth2callback"

	shutdownGrace = 2 * time.Second
)

// ListenFunc binds a listener; net.ListenConfig.Listen satisfies it.
type ListenFunc func(ctx context.Context, network, address string) (net.Listener, error)

// Config describes where credentials live and how the callback listener binds.
// Zero values fall back to the package defaults.
type Config struct {
	CredentialsPath string
	Host            string
	BasePort        int
	PortRange       int
	Timeout         time.Duration
}

// Flow runs the authorization-code flow through a short-lived loopback
// listener and persists the resulting tokens in a TokenStore.
type Flow struct {
	cfg     Config
	store   *google.TokenStore
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	opener  BrowserOpener
	listen  ListenFunc

	mu sync.Mutex // one run at a time
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithMetrics records flow outcomes and durations.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(f *Flow) {
		f.metrics = m
	}
}

// WithBrowserOpener replaces the platform browser launcher.
func WithBrowserOpener(opener BrowserOpener) Option {
	return func(f *Flow) {
		f.opener = opener
	}
}

// WithListenFunc replaces how callback ports are bound.
func WithListenFunc(listen ListenFunc) Option {
	return func(f *Flow) {
		f.listen = listen
	}
}

// New creates a Flow writing tokens to store.
func New(cfg Config, store *google.TokenStore, opts ...Option) *Flow {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BasePort <= 0 {
		cfg.BasePort = DefaultBasePort
	}
	if cfg.PortRange <= 0 {
		cfg.PortRange = DefaultPortRange
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	f := &Flow{
		cfg:    cfg,
		store:  store,
		logger: slog.Default(),
		opener: OpenBrowser,
		listen: (&net.ListenConfig{}).Listen,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.WithComponent(f.logger, "authflow")
	return f
}

// Start runs the flow and reports whether tokens were obtained and
// persisted. Failures are logged.
func (f *Flow) Start(ctx context.Context, openBrowser bool) bool {
	_, err := f.Run(ctx, openBrowser)
	return err == nil
}

// Run runs the flow and returns the persisted bundle. The error is a
// *google.ConfigError, or wraps ErrNoPortAvailable, ErrTimedOut,
// ErrCallback or ErrTokenExchange.
func (f *Flow) Run(ctx context.Context, openBrowser bool) (*google.CredentialBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	started := time.Now()
	ctx, span := instrumentation.StartAuthFlowSpan(ctx)
	defer span.End()

	bundle, err := f.run(ctx, span, openBrowser)

	outcome := outcomeOf(err)
	f.metrics.RecordAuthFlow(ctx, outcome, time.Since(started))
	span.SetAttributes(attribute.String(instrumentation.SpanAttrAuthOutcome, outcome))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		f.logger.Error("authorization failed", slog.String("outcome", outcome), logging.Err(err))
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	f.logger.Info("authorization succeeded", logging.Path(f.store.Path()))
	return bundle, nil
}

func (f *Flow) run(ctx context.Context, span trace.Span, openBrowser bool) (*google.CredentialBundle, error) {
	// Credentials are checked before anything binds.
	reg, err := google.LoadClientRegistration(f.cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	sess := newSession(uuid.NewString())
	ln, err := f.bind(ctx)
	if err != nil {
		return nil, err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	sess.advance(StateListening)
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrAuthPort, port))
	instrumentation.AddSpanEvent(span, "listening")

	redirectURL := fmt.Sprintf("http://localhost:%d%s", port, CallbackPath)
	conf := reg.OAuthConfig(redirectURL)
	sess.consentURL = conf.AuthCodeURL(sess.csrfState, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	// Outlives individual requests so a closing browser tab cannot abort
	// the exchange; cancelled at teardown.
	flowCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, f.callbackHandler(flowCtx, sess, conf))
	mux.HandleFunc("/", indexHandler(sess))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ConnState:         sess.trackConn,
	}
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Warn("callback server stopped", logging.Err(err))
		}
	}()

	sess.advance(StateAwaitingCallback)
	f.logger.Info("waiting for authorization",
		logging.Port(port),
		logging.FlowState(sess.State()),
		slog.String("url", sess.consentURL),
		slog.Duration("timeout", f.cfg.Timeout))

	if openBrowser {
		if err := f.opener(ctx, sess.consentURL); err != nil {
			f.logger.Warn("could not open browser, visit the URL manually", logging.Err(err))
		}
	}

	timer := time.NewTimer(f.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-sess.done:
	case <-timer.C:
		sess.finish(StateTimedOut, nil, fmt.Errorf("%w after %s", ErrTimedOut, f.cfg.Timeout))
	case <-ctx.Done():
		sess.finish(StateTimedOut, nil, fmt.Errorf("%w: %v", ErrTimedOut, ctx.Err()))
	}

	cancel()
	f.teardown(srv, sess, serveDone)
	instrumentation.AddSpanEvent(span, sess.State().String())

	return sess.result()
}

// bind tries host:basePort .. host:basePort+portRange-1 in order.
func (f *Flow) bind(ctx context.Context) (net.Listener, error) {
	var lastErr error
	for i := 0; i < f.cfg.PortRange; i++ {
		port := f.cfg.BasePort + i
		addr := net.JoinHostPort(f.cfg.Host, strconv.Itoa(port))
		ln, err := f.listen(ctx, "tcp", addr)
		if err == nil {
			return ln, nil
		}
		f.logger.Debug("callback port unavailable", logging.Port(port), logging.Err(err))
		lastErr = err
	}
	last := f.cfg.BasePort + f.cfg.PortRange - 1
	return nil, fmt.Errorf("%w: %s ports %d-%d: %v", ErrNoPortAvailable, f.cfg.Host, f.cfg.BasePort, last, lastErr)
}

// teardown closes idle sockets, gives in-flight responses a short grace
// period, then force-closes the server.
func (f *Flow) teardown(srv *http.Server, sess *session, serveDone <-chan struct{}) {
	closed := sess.closeIdleConns()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		f.logger.Warn("callback server did not drain, closing", logging.Err(err))
		sess.closeAllConns()
		_ = srv.Close()
	}

	select {
	case <-serveDone:
	case <-time.After(shutdownGrace):
		f.logger.Warn("abandoning callback server")
	}
	f.logger.Debug("callback server stopped", slog.Int("closed_connections", closed))
}

func (f *Flow) callbackHandler(ctx context.Context, sess *session, conf *oauth2.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess.State().Terminal() {
			http.Error(w, "authorization already completed", http.StatusGone)
			return
		}

		q := r.URL.Query()
		if code := q.Get("error"); code != "" {
			cbErr := &CallbackError{Code: code, Description: q.Get("error_description")}
			w.Header().Set("Connection", "close")
			_ = renderPage(w, http.StatusBadRequest, failurePage(cbErr.Error()))
			sess.finish(StateFailed, nil, cbErr)
			return
		}

		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			return
		}
		if q.Get("state") != sess.csrfState {
			f.logger.Warn("callback state mismatch")
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}
		if !sess.exchanging.CompareAndSwap(false, true) {
			http.Error(w, "authorization already in progress", http.StatusConflict)
			return
		}

		bundle, err := f.exchange(ctx, conf, code)
		w.Header().Set("Connection", "close")
		if err != nil {
			_ = renderPage(w, http.StatusInternalServerError, failurePage(err.Error()))
			sess.finish(StateFailed, nil, err)
			return
		}

		_ = renderPage(w, http.StatusOK, successPage())
		sess.finish(StateSucceeded, bundle, nil)
	}
}

func (f *Flow) exchange(ctx context.Context, conf *oauth2.Config, code string) (*google.CredentialBundle, error) {
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	bundle := google.BundleFromToken(tok)
	if !bundle.HasTokens() {
		return nil, fmt.Errorf("%w: provider returned no refresh token", ErrTokenExchange)
	}
	if err := f.store.Save(bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	f.logger.Debug("authorization code exchanged",
		slog.String("access_token", logging.SanitizeToken(bundle.AccessToken)))
	return bundle, nil
}

func indexHandler(sess *session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_ = renderPage(w, http.StatusOK, indexPage(sess.consentURL))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return instrumentation.AuthFlowSucceeded
	case google.IsConfigError(err):
		return instrumentation.AuthFlowConfigError
	case errors.Is(err, ErrNoPortAvailable):
		return instrumentation.AuthFlowNoPort
	case errors.Is(err, ErrTimedOut):
		return instrumentation.AuthFlowTimedOut
	default:
		return instrumentation.AuthFlowFailed
	}
}
