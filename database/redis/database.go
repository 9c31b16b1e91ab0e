package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sagarc03/imghost"
)

type database struct {
	client *goredis.Client
	prefix string
}

// Connect parses a redis:// or rediss:// URL and creates a client. No
// connection is made until the first command.
func Connect(ctx context.Context, dsn, prefix string) (*database, error) {
	opts, err := goredis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &database{
		client: goredis.NewClient(opts),
		prefix: prefix,
	}, nil
}

// Ping verifies the server is reachable.
func (d *database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Migrate is a no-op; Redis keys need no schema.
func (d *database) Migrate(ctx context.Context) error {
	return nil
}

// Validate only checks connectivity.
func (d *database) Validate(ctx context.Context) error {
	if err := d.Ping(ctx); err != nil {
		return fmt.Errorf("validate redis: %w", err)
	}
	return nil
}

func (d *database) GetRepo() imghost.MetadataRepo {
	return NewRepo(d.client, d.prefix)
}

func (d *database) Close() error {
	return d.client.Close()
}
