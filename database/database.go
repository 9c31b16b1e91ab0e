package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/database/postgres"
	"github.com/sagarc03/imghost/database/redis"
	"github.com/sagarc03/imghost/database/sqlite"
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the backend: "redis", "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=redis sqlite postgres"`
	// DSN is the data source name (connection string or redis:// URL)
	DSN string `mapstructure:"dsn" validate:"required"`
	// Tables names the SQL tables. Ignored by redis.
	Tables imghost.Tables `mapstructure:"tables"`
	// KeyPrefix is prepended to every redis key. Ignored by SQL backends.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Database is a connected metadata backend.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	GetRepo() imghost.MetadataRepo
	Close() error
}

// Connect creates a Database for cfg.Type. It does not migrate.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	switch cfg.Type {
	case "sqlite", "postgres":
		if err := cfg.Tables.Validate(); err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
	}

	switch cfg.Type {
	case "sqlite":
		return sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		return postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	case "redis":
		return redis.Connect(ctx, cfg.DSN, cfg.KeyPrefix)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// Open connects, pings, migrates and validates, then returns a ready repo
// and a function that closes the connection.
func Open(ctx context.Context, cfg Config) (imghost.MetadataRepo, func(), error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	fail := func(step string, err error) (imghost.MetadataRepo, func(), error) {
		_ = db.Close()
		return nil, nil, fmt.Errorf("%s %s: %w", step, cfg.Type, err)
	}

	if err := db.Ping(ctx); err != nil {
		return fail("ping", err)
	}
	if err := db.Migrate(ctx); err != nil {
		return fail("migrate", err)
	}
	if err := db.Validate(ctx); err != nil {
		return fail("validate", err)
	}

	return db.GetRepo(), func() { _ = db.Close() }, nil
}
