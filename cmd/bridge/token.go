package main

import (
	"fmt"
	"time"

	"github.com/erp/bridge/internal/infrastructure/auth"
	"github.com/erp/bridge/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

func newTokenCommand(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a service token for the sync trigger API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			tokens := newTokenService(cfg)
			token, expiresAt, err := tokens.Issue(subject, ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"token":      token,
				"token_type": "Bearer",
				"subject":    subject,
				"expires_at": expiresAt.UTC(),
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "caller the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: http.token_ttl)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newTokenService(cfg *config.Config) *auth.TokenService {
	return auth.NewTokenService(cfg.HTTP.TokenSecret, cfg.HTTP.TokenIssuer, cfg.HTTP.TokenTTL)
}
