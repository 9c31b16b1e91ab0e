// Package storage selects and builds the imghost.ObjectStore named by
// configuration.
package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/filesystem"
	"github.com/sagarc03/imghost/keybackend"
	"github.com/sagarc03/imghost/sigv4"
	"github.com/sagarc03/imghost/storage/miniostore"
	"github.com/sagarc03/imghost/storage/s3store"
)

// Config holds the settings of every supported backend; only the fields of
// Type are read.
type Config struct {
	// Type is "s3", "minio" or "filesystem".
	Type          string
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	UsePathStyle  bool
	PublicBaseURL string
	EnsureBucket  bool
	PublicRead    bool

	// Path is the filesystem root directory.
	Path string
	// BaseURL is the address at which this server is reachable, used by the
	// filesystem store to build object URLs.
	BaseURL string
	// Keys signs filesystem object URLs.
	Keys *keybackend.MapSecretStore
}

// Open builds the store for cfg.Type and returns it with a close function.
func Open(ctx context.Context, cfg Config) (imghost.ObjectStore, func(), error) {
	switch cfg.Type {
	case "s3":
		store, err := s3store.New(ctx, s3store.Config{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			UsePathStyle:  cfg.UsePathStyle,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "minio":
		store, err := miniostore.New(ctx, miniostore.Config{
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
			EnsureBucket:  cfg.EnsureBucket,
			PublicRead:    cfg.PublicRead,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "filesystem":
		store, root, err := OpenFilesystem(cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = root.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// OpenFilesystem builds the filesystem store. The HTTP server needs the
// concrete type to serve /objects, so it is exposed separately from Open.
func OpenFilesystem(cfg Config) (*filesystem.Store, *os.Root, error) {
	if cfg.Path == "" {
		return nil, nil, fmt.Errorf("open filesystem store: path is required")
	}
	if cfg.Keys == nil {
		return nil, nil, fmt.Errorf("open filesystem store: signing keys are required")
	}

	pair, err := cfg.Keys.SigningKey()
	if err != nil {
		return nil, nil, fmt.Errorf("open filesystem store: %w", err)
	}

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("open filesystem store: create %s: %w", cfg.Path, err)
	}

	root, err := os.OpenRoot(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open filesystem store: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	store, err := filesystem.NewStore(root, cfg.BaseURL, sigv4.NewPresigner(region, "s3", pair.AccessKey, pair.SecretKey))
	if err != nil {
		_ = root.Close()
		return nil, nil, err
	}

	return store, root, nil
}
