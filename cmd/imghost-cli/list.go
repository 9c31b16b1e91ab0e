package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/clientcli"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your gallery",
	Long: `List your images, newest first.

Examples:
  imghost-cli list
  imghost-cli list --limit 10 --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 0, "maximum number of images (default: server default)")
}

func runList(cmd *cobra.Command, _ []string) error {
	client, err := getClient(true)
	if err != nil {
		return err
	}

	result, err := client.List(cmd.Context(), clientcli.ListOptions{Limit: listLimit})
	if err != nil {
		return err
	}

	return getFormatter().FormatList(os.Stdout, result)
}
