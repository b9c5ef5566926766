package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ClientRegistration is the OAuth client issued by the Google Cloud console.
type ClientRegistration struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURIs []string `json:"redirect_uris"`
	AuthURI      string   `json:"auth_uri,omitempty"`
	TokenURI     string   `json:"token_uri,omitempty"`
}

// credentialsFile mirrors the two shapes Google hands out for OAuth clients.
type credentialsFile struct {
	Web       *ClientRegistration `json:"web"`
	Installed *ClientRegistration `json:"installed"`
}

// ConfigError reports a missing or malformed credentials file.
// It is fatal at startup.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid OAuth credentials: %v", e.Err)
	}
	return fmt.Sprintf("invalid OAuth credentials file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// LoadClientRegistration reads the credentials file at path.
// Any failure is returned as a *ConfigError.
func LoadClientRegistration(path string) (*ClientRegistration, error) {
	if path == "" {
		return nil, &ConfigError{Err: errors.New("no credentials path configured")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	reg, err := ParseClientRegistration(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return reg, nil
}

// ParseClientRegistration decodes a credentials document carrying exactly one
// of the "web" or "installed" client shapes.
func ParseClientRegistration(data []byte) (*ClientRegistration, error) {
	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse credentials JSON: %w", err)
	}

	var reg *ClientRegistration
	switch {
	case f.Web != nil && f.Installed != nil:
		return nil, errors.New(`credentials must contain either "web" or "installed", not both`)
	case f.Web != nil:
		reg = f.Web
	case f.Installed != nil:
		reg = f.Installed
	default:
		return nil, errors.New(`credentials contain neither a "web" nor an "installed" client`)
	}

	if reg.ClientID == "" {
		return nil, errors.New("credentials are missing client_id")
	}
	return reg, nil
}

// DefaultRedirectURI returns the first registered redirect URI, if any.
func (r *ClientRegistration) DefaultRedirectURI() string {
	if len(r.RedirectURIs) == 0 {
		return ""
	}
	return r.RedirectURIs[0]
}

// Endpoint returns the provider endpoint, honouring overrides from the
// credentials file.
func (r *ClientRegistration) Endpoint() oauth2.Endpoint {
	ep := google.Endpoint
	if r.AuthURI != "" {
		ep.AuthURL = r.AuthURI
	}
	if r.TokenURI != "" {
		ep.TokenURL = r.TokenURI
	}
	return ep
}

// OAuthConfig builds the oauth2 configuration for the calendar scopes.
// An empty redirectURL falls back to DefaultRedirectURI.
func (r *ClientRegistration) OAuthConfig(redirectURL string) *oauth2.Config {
	if redirectURL == "" {
		redirectURL = r.DefaultRedirectURI()
	}
	return &oauth2.Config{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		Endpoint:     r.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       CalendarScopes,
	}
}
