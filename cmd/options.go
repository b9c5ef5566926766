package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/meetmcp/internal/authflow"
	"github.com/teemow/meetmcp/internal/config"
	"github.com/teemow/meetmcp/internal/google"
	"github.com/teemow/meetmcp/internal/instrumentation"
	"github.com/teemow/meetmcp/internal/logging"
)

// credentialOptions are the flags shared by serve and auth. Flags win over
// the environment and the .env file.
type credentialOptions struct {
	envFile         string
	credentialsPath string
	tokenPath       string
	noBrowser       bool
	debug           bool
}

func (o *credentialOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.envFile, "env-file", "", "Dotenv file to load before reading the environment (default: .env)")
	cmd.Flags().StringVar(&o.credentialsPath, "credentials", "", "Path to the OAuth client credentials file. Can also use GOOGLE_MEET_CREDENTIALS_PATH env var.")
	cmd.Flags().StringVar(&o.tokenPath, "token", "", "Path to the token file. Can also use GOOGLE_MEET_TOKEN_PATH env var.")
	cmd.Flags().BoolVar(&o.noBrowser, "no-browser", false, "Do not open a browser for authorization; the consent URL is logged instead. Can also use MEETMCP_OPEN_BROWSER=false.")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "Enable debug logging")
}

// loadConfig resolves the configuration and applies flag overrides.
func (o *credentialOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.credentialsPath != "" {
		cfg.CredentialsPath = o.credentialsPath
	}
	if o.tokenPath != "" {
		cfg.TokenPath = o.tokenPath
	}
	if o.noBrowser {
		cfg.OpenBrowser = false
	}
	if o.debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes text logs to w. Never pass stdout when serving over stdio.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	logger := logging.NewLogger(w, cfg.SlogLevel())
	slog.SetDefault(logger)
	return logger
}

func newFlow(cfg *config.Config, store *google.TokenStore, logger *slog.Logger, metrics *instrumentation.Metrics) *authflow.Flow {
	return authflow.New(authflow.Config{
		CredentialsPath: cfg.CredentialsPath,
		Host:            cfg.AuthHost,
		BasePort:        cfg.AuthPort,
		PortRange:       cfg.AuthPortRange,
		Timeout:         cfg.AuthTimeout,
	}, store, authflow.WithLogger(logger), authflow.WithMetrics(metrics))
}
