package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/meetmcp/internal/logging"
)

// TokenStore persists the credential bundle at a single path.
type TokenStore struct {
	path   string
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex // serializes writers
}

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) TokenStoreOption {
	return func(s *TokenStore) {
		s.now = now
	}
}

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) TokenStoreOption {
	return func(s *TokenStore) {
		s.logger = logger
	}
}

// NewTokenStore creates a store for the token file at path.
func NewTokenStore(path string, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{
		path:   path,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "tokenstore")
	return s
}

// Path returns the token file location.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads and parses the token file.
func (s *TokenStore) Load() (*CredentialBundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", s.path, err)
	}

	var b CredentialBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenParse, err)
	}
	return &b, nil
}

// Save writes the bundle, creating the directory when needed.
// The file is written to a temporary sibling and renamed into place so
// readers never observe a partial write.
func (s *TokenStore) Save(b *CredentialBundle) error {
	if b == nil {
		return errors.New("cannot save nil credential bundle")
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	committed = true

	s.logger.Debug("token saved", logging.Path(s.path),
		slog.String("access_token", logging.SanitizeToken(b.AccessToken)))
	return nil
}

// IsValid reports whether the bundle can be used without a refresh.
func (s *TokenStore) IsValid(b *CredentialBundle) bool {
	if !b.HasTokens() {
		return false
	}
	if b.ExpiryDate == 0 {
		return true
	}
	return b.ExpiryDate >= s.now().UnixMilli()
}

// Refresh exchanges the refresh token for a new access token and persists
// the result. On failure the token file is left untouched.
func (s *TokenStore) Refresh(ctx context.Context, b *CredentialBundle, reg *ClientRegistration) (*CredentialBundle, error) {
	if b == nil || b.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", ErrRefreshFailed)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: no client registration", ErrRefreshFailed)
	}

	conf := reg.OAuthConfig("")
	// An empty access token forces the token source to hit the endpoint.
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: b.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	refreshed := mergeBundle(b, tok)
	if err := s.Save(refreshed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	s.logger.Info("access token refreshed", slog.Time("expiry", refreshed.Expiry()))
	return refreshed, nil
}

// TokenSource returns a token source seeded with b that writes every newly
// minted token back to the store.
func (s *TokenStore) TokenSource(ctx context.Context, reg *ClientRegistration, b *CredentialBundle) oauth2.TokenSource {
	return &persistingTokenSource{
		base:  reg.OAuthConfig("").TokenSource(ctx, b.Token()),
		store: s,
		last:  b,
	}
}

// mergeBundle folds a freshly issued token into the previous bundle, keeping
// the refresh token and scope when the provider omits them.
func mergeBundle(prev *CredentialBundle, tok *oauth2.Token) *CredentialBundle {
	next := BundleFromToken(tok)
	if next.RefreshToken == "" {
		next.RefreshToken = prev.RefreshToken
	}
	if next.Scope == "" {
		next.Scope = prev.Scope
	}
	if next.TokenType == "" {
		next.TokenType = prev.TokenType
	}
	return next
}

type persistingTokenSource struct {
	base  oauth2.TokenSource
	store *TokenStore

	mu   sync.Mutex
	last *CredentialBundle
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken == p.last.AccessToken {
		return tok, nil
	}

	next := mergeBundle(p.last, tok)
	if err := p.store.Save(next); err != nil {
		// The token is still usable for this process.
		p.store.logger.Warn("failed to persist refreshed token", logging.Err(err))
	}
	p.last = next
	return tok, nil
}
