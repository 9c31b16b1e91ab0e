package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/clientcli"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id> [id...]",
	Short: "Delete images you own",
	Long: `Delete one or more of your images by id.

Examples:
  imghost-cli delete img_01J8Z...
  imghost-cli delete -q $(imghost-cli list -q)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient(true)
	if err != nil {
		return err
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{IDs: args})
	if err != nil {
		return err
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}
