package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/config"
	"github.com/sagarc03/imghost/database"
	"github.com/sagarc03/imghost/filesystem"
	"github.com/sagarc03/imghost/keybackend"
	"github.com/sagarc03/imghost/storage"
)

// backends holds the opened metadata index and object store.
type backends struct {
	repo  imghost.MetadataRepo
	store imghost.ObjectStore
	// objects is set when the server is its own object store.
	objects *filesystem.Store
	keys    *keybackend.MapSecretStore

	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends connects the metadata index, migrating it, and opens the
// configured object store.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	repo, closeDB, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	b.repo = repo
	b.closers = append(b.closers, closeDB)
	slog.Info("connected to database", "type", cfg.Database.Type)

	if cfg.Storage.Type == "filesystem" {
		keys, err := signingKeys(cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.keys = keys

		store, root, err := storage.OpenFilesystem(cfg.Storage.StorageConfig(baseURL(cfg), keys))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		b.store = store
		b.objects = store
		b.closers = append(b.closers, func() { _ = root.Close() })
	} else {
		store, closeStore, err := storage.Open(ctx, cfg.Storage.StorageConfig("", nil))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		b.store = store
		b.closers = append(b.closers, closeStore)
	}
	slog.Info("opened object store", "type", cfg.Storage.Type)

	return b, nil
}

func (b *backends) service(cfg *config.Config) (*imghost.Service, error) {
	service, err := imghost.NewService(b.store, b.repo, b.repo, cfg.Service.ServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return service, nil
}

// signingKeys loads the keys that sign filesystem object URLs. In dev a
// missing key set is replaced by a random pair that lives as long as the
// process.
func signingKeys(cfg *config.Config) (*keybackend.MapSecretStore, error) {
	keys, err := keybackend.NewSecretStore(cfg.Storage.Keys)
	if err != nil {
		return nil, fmt.Errorf("load storage keys: %w", err)
	}
	if keys.Len() > 0 {
		return keys, nil
	}

	if cfg.Env == "prod" {
		return nil, errors.New("load storage keys: storage.keys is required for the filesystem store in prod")
	}

	pair, err := randomKeyPair()
	if err != nil {
		return nil, err
	}
	slog.Warn("no storage keys configured, using an ephemeral signing key", "access_key", pair.AccessKey)

	return keybackend.NewSecretStore(keybackend.KeysConfig{Inline: []keybackend.KeyPair{pair}})
}

func randomKeyPair() (keybackend.KeyPair, error) {
	buf := make([]byte, 30)
	if _, err := rand.Read(buf); err != nil {
		return keybackend.KeyPair{}, fmt.Errorf("generate key pair: %w", err)
	}
	return keybackend.KeyPair{
		AccessKey: "IMGHOST" + hex.EncodeToString(buf[:6]),
		SecretKey: hex.EncodeToString(buf[6:]),
	}, nil
}

// baseURL is where clients reach this server.
func baseURL(cfg *config.Config) string {
	if cfg.Server.BaseURL != "" {
		return cfg.Server.BaseURL
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
}
