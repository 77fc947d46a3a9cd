package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/abduss/homelist/internal/auth"
	"github.com/abduss/homelist/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "homelist-token",
		Short:         "Issue bearer tokens for the homelist write API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newIssueCommand())
	return root
}

func newIssueCommand() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token with HOMELIST_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			token, expiresAt, err := auth.NewService(cfg.Auth).IssueAccessToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime; defaults to HOMELIST_JWT_TTL")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
