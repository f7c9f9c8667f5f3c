package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/irgordon/insight/api/internal/core/services"
)

func (c *cli) tokenCmd() *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := c.getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			token, err := services.NewTokenService(secret).GenerateAccessToken(subject, scopes, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, usually the operator")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{services.ScopeRead}, "granted scopes: insight:read, insight:write, secrets:reveal")
	cmd.Flags().DurationVar(&ttl, "ttl", services.DefaultAccessTTL, "token lifetime")
	cmd.MarkFlagRequired("subject")
	return cmd
}
