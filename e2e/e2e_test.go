package e2e_test

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/imghost/clientcli"
)

// pngBytes is a 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestE2E_Lifecycle_SQLite(t *testing.T) {
	baseURL, configPath, cleanup := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		DBType:      "sqlite",
		DBDSN:       filepath.Join(t.TempDir(), "test.db"),
		StoragePath: t.TempDir(),
	})
	defer cleanup()

	runLifecycleTests(t, baseURL, configPath)
}

func TestE2E_Lifecycle_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	baseURL, configPath, cleanup := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		DBType:      "redis",
		DBDSN:       "redis://" + mr.Addr() + "/0",
		StoragePath: t.TempDir(),
	})
	defer cleanup()

	runLifecycleTests(t, baseURL, configPath)
}

func TestE2E_Lifecycle_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	baseURL, configPath, cleanup := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		DBType:      "postgres",
		DBDSN:       getSharedPostgresDatabase(t),
		StoragePath: t.TempDir(),
	})
	defer cleanup()

	runLifecycleTests(t, baseURL, configPath)
}

// newClient logs in through the dev key route and returns an
// authenticated client.
func newClient(t *testing.T, baseURL string) (*clientcli.Client, *clientcli.KeyResult) {
	t.Helper()

	anon, err := clientcli.New(&clientcli.Config{Endpoint: baseURL})
	require.NoError(t, err)

	key, err := anon.Login(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, key.APIKey)
	require.NotEmpty(t, key.UID)

	client, err := clientcli.New(&clientcli.Config{Endpoint: baseURL, APIKey: key.APIKey})
	require.NoError(t, err)

	return client, key
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, content, 0o600))
	return p
}

// runLifecycleTests uploads, lists, downloads and deletes through the
// public API, then checks ownership and the operator commands.
func runLifecycleTests(t *testing.T, baseURL, configPath string) {
	t.Helper()
	ctx := context.Background()

	alice, aliceKey := newClient(t, baseURL)
	bob, _ := newClient(t, baseURL)

	var uploaded clientcli.UploadResult

	t.Run("upload normalizes the file name", func(t *testing.T) {
		local := writeFile(t, "cat.png", pngBytes)

		results, err := alice.Upload(ctx, clientcli.UploadOptions{
			LocalPath: local,
			Filename:  "My Holiday Photo!.PNG",
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.NoError(t, results[0].Err)

		uploaded = results[0]
		assert.NotEmpty(t, uploaded.ID)
		assert.Equal(t, "image/png", uploaded.ContentType)
		assert.True(t, strings.HasPrefix(uploaded.Key, aliceKey.UID+"/"), "key %q is scoped to the owner", uploaded.Key)
		assert.NotContains(t, uploaded.Key, " ")
		assert.NotEmpty(t, uploaded.URL)
	})

	t.Run("list returns the finalized image", func(t *testing.T) {
		list, err := alice.List(ctx, clientcli.ListOptions{})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)

		item := list.Items[0]
		assert.Equal(t, uploaded.ID, item.ID)
		assert.Equal(t, uploaded.Key, item.Key)
		assert.Equal(t, "image/png", item.ContentType)
		assert.NotEmpty(t, item.URL)
	})

	t.Run("other owners see an empty gallery", func(t *testing.T) {
		list, err := bob.List(ctx, clientcli.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, list.Items)
	})

	t.Run("download follows the redirect to the object", func(t *testing.T) {
		result, body, err := alice.Download(ctx, clientcli.DownloadOptions{ID: uploaded.ID, LocalPath: "-"})
		require.NoError(t, err)
		defer func() { _ = body.Close() }()

		content, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, content)
		assert.Equal(t, uploaded.ID, result.ID)
	})

	t.Run("list URL serves the object", func(t *testing.T) {
		list, err := alice.List(ctx, clientcli.ListOptions{})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)

		resp, err := http.Get(list.Items[0].URL)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("requests without a key are rejected", func(t *testing.T) {
		anon, err := clientcli.New(&clientcli.Config{Endpoint: baseURL})
		require.NoError(t, err)

		_, err = anon.List(ctx, clientcli.ListOptions{})
		assert.ErrorIs(t, err, clientcli.ErrUnauthorized)
	})

	t.Run("other owners cannot delete", func(t *testing.T) {
		results, err := bob.Delete(ctx, clientcli.DeleteOptions{IDs: []string{uploaded.ID}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.False(t, results[0].Deleted)
		assert.ErrorIs(t, results[0].Err, clientcli.ErrForbidden)

		list, err := alice.List(ctx, clientcli.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, list.Items, 1)
	})

	t.Run("operator list shows the image", func(t *testing.T) {
		output := runCommand(t, configPath, "list", aliceKey.UID)
		assert.Contains(t, output, uploaded.ID)
		assert.Contains(t, output, "image/png")
	})

	t.Run("owner deletes the image", func(t *testing.T) {
		results, err := alice.Delete(ctx, clientcli.DeleteOptions{IDs: []string{uploaded.ID}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].Deleted)
		assert.NoError(t, results[0].Err)

		list, err := alice.List(ctx, clientcli.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, list.Items)
	})

	t.Run("deleted image is gone", func(t *testing.T) {
		_, _, err := alice.Download(ctx, clientcli.DownloadOptions{ID: uploaded.ID, LocalPath: "-"})
		assert.ErrorIs(t, err, clientcli.ErrNotFound)

		results, err := alice.Delete(ctx, clientcli.DeleteOptions{IDs: []string{uploaded.ID}})
		require.NoError(t, err)
		assert.ErrorIs(t, results[0].Err, clientcli.ErrNotFound)
	})

	t.Run("operator key works against the API", func(t *testing.T) {
		key := strings.TrimSpace(runCommand(t, configPath, "issue-key", aliceKey.UID))
		require.NotEmpty(t, key)

		client, err := clientcli.New(&clientcli.Config{Endpoint: baseURL, APIKey: key})
		require.NoError(t, err)

		local := writeFile(t, "dog.png", pngBytes)
		results, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: local})
		require.NoError(t, err)
		require.NoError(t, results[0].Err)

		list, err := alice.List(ctx, clientcli.ListOptions{})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, results[0].ID, list.Items[0].ID)
	})
}
