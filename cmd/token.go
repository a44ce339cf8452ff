package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gmail-ai-agent/internal/logging"
	"github.com/teemow/gmail-ai-agent/internal/session"
)

var tokenEnvBindings = []envBinding{
	{"secret-key", "SECRET_KEY"},
	{"token-expire-minutes", "ACCESS_TOKEN_EXPIRE_MINUTES"},
	{"client-id", "GOOGLE_CLIENT_ID"},
	{"client-secret", "GOOGLE_CLIENT_SECRET"},
	{"access-token", "GOOGLE_ACCESS_TOKEN"},
	{"refresh-token", "GOOGLE_REFRESH_TOKEN"},
}

type tokenOptions struct {
	secretKey     string
	expireMinutes int
	creds         session.Credentials
	verify        string
}

func newTokenCmd() *cobra.Command {
	var opts tokenOptions

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or inspect a session token",
		Long: `Issue a session token for a set of Google OAuth credentials without going
through POST /auth/google, or inspect an existing token with --verify.

The secret must match the one used by the server (SECRET_KEY).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnvFallbacks(cmd, tokenEnvBindings); err != nil {
				return err
			}
			return runToken(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.secretKey, "secret-key", "", "HMAC key signing session tokens. Can also use SECRET_KEY env var.")
	f.IntVar(&opts.expireMinutes, "token-expire-minutes", int(session.DefaultTTL/time.Minute), "Token lifetime in minutes. Can also use ACCESS_TOKEN_EXPIRE_MINUTES env var.")
	f.StringVar(&opts.creds.AccessToken, "access-token", "", "Google access token. Can also use GOOGLE_ACCESS_TOKEN env var.")
	f.StringVar(&opts.creds.RefreshToken, "refresh-token", "", "Google refresh token. Can also use GOOGLE_REFRESH_TOKEN env var.")
	f.StringVar(&opts.creds.ClientID, "client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	f.StringVar(&opts.creds.ClientSecret, "client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	f.StringVar(&opts.verify, "verify", "", "Verify this token and print its claims instead of issuing one")

	return cmd
}

func runToken(cmd *cobra.Command, opts tokenOptions) error {
	if opts.secretKey == "" {
		return fmt.Errorf("a secret key is required (--secret-key or SECRET_KEY)")
	}
	m := session.NewManager(opts.secretKey, session.WithTTL(time.Duration(opts.expireMinutes)*time.Minute))
	out := cmd.OutOrStdout()

	if opts.verify != "" {
		creds, err := m.Verify(opts.verify)
		if err != nil {
			return fmt.Errorf("token rejected: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"subject":       creds.Subject,
			"access_token":  logging.SanitizeToken(creds.AccessToken),
			"refresh_token": logging.SanitizeToken(creds.RefreshToken),
			"client_id":     creds.ClientID,
			"expires_at":    creds.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}

	c := opts.creds
	if !c.Complete() {
		return fmt.Errorf("access token, refresh token, client id and client secret are all required")
	}

	token, _, err := m.Issue(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
