package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"finance/internal/auth"
)

func tokenCmd(a *app) *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		Long: `Token signs a bearer token with AUTH_JWT_SECRET that the API accepts
as the given user until it expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.AuthJWTSecret == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			p, err := auth.NewJWTProvider(a.cfg.AuthJWTSecret, a.cfg.AuthJWTIssuer)
			if err != nil {
				return err
			}
			token, err := p.Sign(userID, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user the token authenticates (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
