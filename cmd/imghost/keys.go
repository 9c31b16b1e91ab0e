package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/config"
	"github.com/sagarc03/imghost/identity"
)

var issueKeyCmd = &cobra.Command{
	Use:   "issue-key [uid]",
	Short: "Issue an API key",
	Long: `Issue an API key for an existing owner, or register a new owner
and issue a key for it when no uid is given. The key is printed on stdout.

Examples:
  # New owner
  imghost issue-key

  # Another key for an existing owner
  imghost issue-key u_3f9a1c2d`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIssueKey,
}

func init() {
	rootCmd.AddCommand(issueKeyCmd)
}

func runIssueKey(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	service, err := b.service(cfg)
	if err != nil {
		return err
	}

	issuer, err := identity.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("create key issuer: %w", err)
	}

	var uid string
	if len(args) == 1 {
		owner, err := service.LookupOwner(ctx, args[0])
		if err != nil {
			return err
		}
		uid = owner.ID
	} else {
		owner, err := service.RegisterOwner(ctx)
		if err != nil {
			return err
		}
		uid = owner.ID
		slog.Info("registered owner", "uid", owner.ID, "username", owner.Username)
	}

	key, err := issuer.Issue(uid)
	if err != nil {
		return err
	}

	slog.Info("issued key", "uid", uid)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
	return err
}
