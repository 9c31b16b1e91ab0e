package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <uid> <id1> [id2] ...",
	Short: "Remove images on behalf of an owner",
	Long: `Delete images owned by uid. Each image's object is removed from the
store before its record; images owned by someone else are refused.

Examples:
  # Remove one image
  imghost remove u_3f9a1c2d img_01J...

  # Remove quietly
  imghost remove -q u_3f9a1c2d img_01J... img_01K...`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRemove,
}

var removeQuiet bool

func init() {
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-image output")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
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

	uid := args[0]
	removed := 0
	notFound := 0

	for _, id := range args[1:] {
		deleteErr := service.Delete(ctx, id, uid)
		if errors.Is(deleteErr, imghost.ErrNotFound) {
			notFound++
			if !removeQuiet {
				slog.Warn("not found", "id", id)
			}
			continue
		}
		if deleteErr != nil {
			return fmt.Errorf("remove %s: %w", id, deleteErr)
		}
		removed++
		if !removeQuiet {
			slog.Info("removed", "id", id)
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}
