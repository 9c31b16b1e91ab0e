package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/clientcli"
)

var downloadCmd = &cobra.Command{
	Use:   "download <id> [local-path]",
	Short: "Download an image",
	Long: `Download an image by id. Without a local path the stored file name
is used; "-" writes to stdout.

Examples:
  imghost-cli download img_01J8Z...
  imghost-cli download img_01J8Z... ./out.png
  imghost-cli download img_01J8Z... - > out.png`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	client, err := getClient(false)
	if err != nil {
		return err
	}

	opts := clientcli.DownloadOptions{ID: args[0]}
	if len(args) == 2 {
		opts.LocalPath = args[1]
	}

	result, body, err := client.Download(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if body != nil {
		defer func() { _ = body.Close() }()
		written, copyErr := io.Copy(os.Stdout, body)
		if copyErr != nil {
			return copyErr
		}
		result.Size = written
		// Stdout carries the image; keep the summary off it.
		return getFormatter().FormatDownload(os.Stderr, result)
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}
