package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <uid> <file1> [file2] ...",
	Short: "Import local images into an owner's gallery",
	Long: `Upload local files on behalf of uid through the same initiate and
finalize steps a client uses. With the filesystem store the bytes are
written directly; otherwise they are PUT to the presigned upload URL.

Examples:
  # Add a single image
  imghost add u_3f9a1c2d ./cat.png

  # Add several, quietly
  imghost add -q u_3f9a1c2d ./a.jpg ./b.jpg`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAdd,
}

var addQuiet bool

func init() {
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(addCmd)
}

// objectWriter writes bytes for a handle returned by Initiate.
type objectWriter func(ctx context.Context, handle imghost.Handle, contentType string, f *os.File) error

func runAdd(cmd *cobra.Command, args []string) error {
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
	if _, err := service.LookupOwner(ctx, uid); err != nil {
		return err
	}

	write := putPresigned
	if b.objects != nil {
		write = func(ctx context.Context, handle imghost.Handle, _ string, f *os.File) error {
			_, err := b.objects.Write(ctx, handle.StorageKey, f)
			return err
		}
	}

	added := 0
	for _, path := range args[1:] {
		id, err := addFile(ctx, service, write, uid, path)
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
		added++
		if !addQuiet {
			slog.Info("added", "file", path, "id", id)
		}
	}

	slog.Info("add complete", "added", added)
	return nil
}

func addFile(ctx context.Context, service *imghost.Service, write objectWriter, uid, path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is a CLI argument
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	contentType := detectContentType(path)

	handle, err := service.Initiate(ctx, uid, filepath.Base(path), contentType)
	if err != nil {
		return "", err
	}

	if err := write(ctx, handle, contentType, f); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	result, err := service.Finalize(ctx, uid, imghost.FinalizeRequest{
		ID:          handle.ID,
		StorageKey:  handle.StorageKey,
		DisplayName: handle.DisplayName,
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

func putPresigned(ctx context.Context, handle imghost.Handle, contentType string, f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, handle.UploadURL, f)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("object store returned %s", resp.Status)
	}
	return nil
}

// detectContentType determines the MIME type from a file's extension.
func detectContentType(path string) string {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
