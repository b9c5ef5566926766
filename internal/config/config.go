package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/teemow/meetmcp/internal/logging"
)

// AppName names the per-user config and data directories.
const AppName = "meetmcp"

const (
	credentialsFileName = "credentials.json"
	tokenFileName       = "token.json"
)

// Config holds the settings shared by every command.
type Config struct {
	// CredentialsPath points at the provider-issued client registration file.
	CredentialsPath string `envconfig:"GOOGLE_MEET_CREDENTIALS_PATH"`

	// LegacyCredentialsPath is consulted when CredentialsPath is unset.
	LegacyCredentialsPath string `envconfig:"GOOGLE_OAUTH_CREDENTIALS"`

	// TokenPath points at the persisted credential bundle.
	TokenPath string `envconfig:"GOOGLE_MEET_TOKEN_PATH"`

	// LegacyTokenPath is consulted when TokenPath is unset.
	LegacyTokenPath string `envconfig:"GOOGLE_OAUTH_TOKEN_PATH"`

	// AuthHost is the loopback host the callback listener binds to.
	AuthHost string `envconfig:"MEETMCP_AUTH_HOST" default:"localhost"`

	// AuthPort is the first port tried for the callback listener.
	AuthPort int `envconfig:"MEETMCP_AUTH_PORT" default:"3000"`

	// AuthPortRange is how many consecutive ports are tried.
	AuthPortRange int `envconfig:"MEETMCP_AUTH_PORT_RANGE" default:"10"`

	// AuthTimeout bounds how long the flow waits for the browser callback.
	AuthTimeout time.Duration `envconfig:"MEETMCP_AUTH_TIMEOUT" default:"5m"`

	// OpenBrowser controls whether the consent URL is opened automatically.
	OpenBrowser bool `envconfig:"MEETMCP_OPEN_BROWSER" default:"true"`

	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel string `envconfig:"MEETMCP_LOG_LEVEL" default:"info"`
}

// Load reads an optional dotenv file and then the environment.
// Variables already present in the environment win over the dotenv file.
// An empty envFile means ".env" in the working directory.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if c.CredentialsPath == "" {
		c.CredentialsPath = c.LegacyCredentialsPath
	}
	if c.CredentialsPath == "" {
		c.CredentialsPath = DefaultCredentialsPath()
	}
	if c.TokenPath == "" {
		c.TokenPath = c.LegacyTokenPath
	}
	if c.TokenPath == "" {
		c.TokenPath = DefaultTokenPath()
	}

	return &c, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// DefaultCredentialsPath returns the credentials file location under the XDG config home.
func DefaultCredentialsPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, credentialsFileName)
}

// DefaultTokenPath returns the token file location under the XDG data home.
func DefaultTokenPath() string {
	return filepath.Join(xdg.DataHome, AppName, tokenFileName)
}

// Validate checks the flow settings.
func (c *Config) Validate() error {
	if c.CredentialsPath == "" {
		return errors.New("credentials path must not be empty")
	}
	if c.TokenPath == "" {
		return errors.New("token path must not be empty")
	}
	if c.AuthPort < 1 || c.AuthPort > 65535 {
		return fmt.Errorf("auth port %d out of range", c.AuthPort)
	}
	if c.AuthPortRange < 1 {
		return fmt.Errorf("auth port range must be at least 1, got %d", c.AuthPortRange)
	}
	if last := c.AuthPort + c.AuthPortRange - 1; last > 65535 {
		return fmt.Errorf("auth port range ends at %d, beyond 65535", last)
	}
	if c.AuthTimeout <= 0 {
		return fmt.Errorf("auth timeout must be positive, got %s", c.AuthTimeout)
	}
	return nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	return logging.ParseLevel(c.LogLevel)
}
