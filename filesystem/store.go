// Package filesystem is a local object store for development and single
// node deployments. Objects live under one sandboxed root directory and are
// reached through SigV4 presigned /objects/<key> URLs that the imghost HTTP
// server itself verifies and serves.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/sigv4"
)

// ObjectsPath is the URL prefix under which the HTTP server serves objects.
const ObjectsPath = "/objects"

// Store provides file system storage operations.
type Store struct {
	root      *os.Root
	baseURL   *url.URL
	presigner *sigv4.Presigner
}

// NewStore creates a Store with the given root directory. The root provides
// sandboxed file operations preventing path traversal. baseURL is the
// externally reachable address of the imghost server, such as
// http://localhost:5708.
func NewStore(root *os.Root, baseURL string, presigner *sigv4.Presigner) (*Store, error) {
	if root == nil || presigner == nil {
		return nil, errors.New("new filesystem store: root and presigner are required")
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("new filesystem store: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("new filesystem store: base url must be absolute http(s): %q", baseURL)
	}

	return &Store{root: root, baseURL: u, presigner: presigner}, nil
}

func (s *Store) objectURL(key string) *url.URL {
	u := *s.baseURL
	u.Path = u.Path + ObjectsPath + "/" + key
	u.RawPath = ""
	return &u
}

// IssueUploadURL presigns a PUT of key. The content type is signed, so the
// upload must declare the same one.
func (s *Store) IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	signed, err := s.presigner.Presign(http.MethodPut, s.objectURL(key), ttl, headers)
	if err != nil {
		return "", fmt.Errorf("issue upload url: %w", err)
	}
	return signed, nil
}

// IssueDownloadURL presigns a GET of key.
func (s *Store) IssueDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	signed, err := s.presigner.Presign(http.MethodGet, s.objectURL(key), ttl, nil)
	if err != nil {
		return "", fmt.Errorf("issue download url: %w", err)
	}
	return signed, nil
}

// PublicReference returns the unsigned object URL. The server only answers
// it when public reads are enabled.
func (s *Store) PublicReference(key string) string {
	return imghost.PublicURL(s.baseURL.String()+ObjectsPath, key)
}

// InternalReference returns file://<key>.
func (s *Store) InternalReference(key string) string {
	return "file://" + key
}

// Open opens an object for reading. Returns imghost.ErrObjectNotFound if the
// file does not exist.
func (s *Store) Open(ctx context.Context, key string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, imghost.ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		_ = f.Close()
		return nil, imghost.ErrObjectNotFound
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically writes content to key using a temp file and rename,
// creating intermediate directories as needed. It returns the number of
// bytes written.
func (s *Store) Write(ctx context.Context, key string, content io.Reader) (int64, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	if !imghost.IsValidKey(key) {
		return 0, fmt.Errorf("write object %q: %w", key, imghost.ErrValidation)
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return 0, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	written, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return 0, fmt.Errorf("could not copy object contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return 0, fmt.Errorf("could not sync written file: %w", err)
	}

	if destDir := filepath.Dir(key); destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return 0, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if err := s.root.Rename(tmpFile, key); err != nil {
		return 0, fmt.Errorf("failed to rename file: %w", err)
	}

	success = true
	return written, nil
}

// Delete removes an object. Returns imghost.ErrObjectNotFound if the file
// does not exist. Empty owner and id directories are left behind.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.root.Remove(key); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, imghost.ErrObjectNotFound)
		}
		return fmt.Errorf("delete %s: %w: %w", key, imghost.ErrStore, err)
	}
	return nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
