package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bookclub/internal/config"
	"bookclub/internal/identity"
)

func newTokenCommand(c *cli) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Auth.Mode != config.AuthHMAC {
				return c.fail("issue token", errors.New("tokens can only be issued in hmac auth mode"))
			}
			secret := c.cfg.Auth.JWTSecret
			if secret == "" {
				secret = identity.DevSecret
			}
			issuer, err := identity.NewHMACVerifier([]byte(secret), c.cfg.Auth.JWTIssuer)
			if err != nil {
				return c.fail("issue token", err)
			}
			if ttl <= 0 {
				ttl = c.cfg.Auth.TokenTTL
			}
			token, err := issuer.IssueToken(subject, ttl)
			if err != nil {
				return c.fail("issue token", err)
			}
			fmt.Fprintln(c.stdout, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject (userId) the token is issued for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default BOOKCLUB_JWT_TTL)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
