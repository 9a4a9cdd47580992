package main

import (
	"fmt"
	"time"

	"backend-trpreport/internal/auth"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		user   string
		perms  []string
		ttl    time.Duration
		secret string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = loadConfig().JWTSecret
			}
			tok, err := auth.NewService(secret).IssueToken(user, perms, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&user, "user", "", "user id (required)")
	f.StringSliceVar(&perms, "perm", []string{auth.PermUploadFile, auth.PermViewFiles}, "granted permissions")
	f.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	f.StringVar(&secret, "secret", "", "signing secret (default JWT_SECRET)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
