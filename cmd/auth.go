package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetmcp/internal/google"
	"github.com/teemow/meetmcp/internal/logging"
)

func newAuthCmd() *cobra.Command {
	var opts credentialOptions

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize meetmcp to access Google Calendar",
		Long: `Run the Google authorization flow now and store the token.

A short-lived server listens on the first free port of the configured callback
range. The consent page opens in a browser unless --no-browser is given, in
which case the URL is printed to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg)

			if _, err := google.LoadClientRegistration(cfg.CredentialsPath); err != nil {
				return err
			}

			store := google.NewTokenStore(cfg.TokenPath, google.WithLogger(logger))
			bundle, err := newFlow(cfg, store, logger, nil).Run(ctx, cfg.OpenBrowser)
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Authorized. Token saved to %s (expires %s).\n",
				store.Path(), bundle.Expiry().Local().Format(time.RFC1123))
			return nil
		},
	}
	opts.addFlags(cmd)
	cmd.AddCommand(newAuthStatusCmd())

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	var opts credentialOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a usable token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store := google.NewTokenStore(cfg.TokenPath, google.WithLogger(logging.NewLogger(io.Discard, cfg.SlogLevel())))
			return printAuthStatus(cmd.OutOrStdout(), store, cfg.CredentialsPath)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

// printAuthStatus reports the credentials file and token state without
// printing any token material.
func printAuthStatus(w io.Writer, store *google.TokenStore, credentialsPath string) error {
	if _, err := google.LoadClientRegistration(credentialsPath); err != nil {
		fmt.Fprintf(w, "Credentials: %s (unusable: %v)\n", credentialsPath, err)
	} else {
		fmt.Fprintf(w, "Credentials: %s\n", credentialsPath)
	}
	fmt.Fprintf(w, "Token: %s\n", store.Path())

	bundle, err := store.Load()
	switch {
	case errors.Is(err, google.ErrTokenNotFound):
		fmt.Fprintln(w, "Status: not authorized (run \"meetmcp auth\")")
		return nil
	case err != nil:
		fmt.Fprintf(w, "Status: unreadable token file: %v\n", err)
		return nil
	}

	expiry := "an unknown time"
	if t := bundle.Expiry(); !t.IsZero() {
		expiry = t.Local().Format(time.RFC1123)
	}
	switch {
	case store.IsValid(bundle):
		fmt.Fprintf(w, "Status: authorized, access token valid until %s\n", expiry)
	case bundle.RefreshToken != "":
		fmt.Fprintf(w, "Status: access token expired at %s, will be refreshed on next use\n", expiry)
	default:
		fmt.Fprintln(w, "Status: token incomplete, run \"meetmcp auth\" again")
	}
	return nil
}
