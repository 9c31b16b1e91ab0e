package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/clientcli"
)

var (
	uploadRecursive   bool
	uploadContentType string
	uploadFilename    string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Upload images",
	Long: `Upload an image, or a directory of images with -r.

The server normalizes the file name; the stored name is shown in the
output.

Examples:
  imghost-cli upload ./cat.png
  imghost-cli upload --name "Holiday 2024.jpg" ./IMG_0001.jpg
  imghost-cli upload -r ./photos/`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload directory recursively")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().StringVarP(&uploadFilename, "name", "n", "", "file name to send instead of the local one")
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := getClient(true)
	if err != nil {
		return err
	}

	results, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
		LocalPath:   args[0],
		Filename:    uploadFilename,
		ContentType: uploadContentType,
		Recursive:   uploadRecursive,
	})
	if err != nil {
		return err
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return &exitError{code: 1}
		}
	}

	return nil
}
