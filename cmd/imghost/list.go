package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/config"
)

var listCmd = &cobra.Command{
	Use:   "list <uid>",
	Short: "List an owner's gallery",
	Long: `Print the gallery of an owner, newest first, with each entry's
resolved reference.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var listLimit int

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 50, "maximum number of images to list")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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

	records, err := service.List(ctx, args[0], listLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFILENAME\tTYPE\tCREATED\tURL")
	for _, rec := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.DisplayName,
			rec.ContentType,
			rec.CreatedAt.Local().Format(time.DateTime),
			rec.Reference,
		)
	}
	return w.Flush()
}
