package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
)

// getSharedTestDatabase returns a pool on a container shared by every test
// in the package. The container is reaped by the testcontainers ryuk sidecar
// when the test binary exits.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			t.Fatalf("could not connect to database: %v", err)
		}

		testPool = pool
	})

	if testPool == nil {
		t.Fatal("shared postgres pool is not available")
	}
	return testPool
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func randomTables(t *testing.T) imghost.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return imghost.Tables{
		Records: "records_" + suffix,
		Owners:  "owners_" + suffix,
	}
}

func getDSN(pool *pgxpool.Pool) string {
	return pool.Config().ConnString()
}

// setupTestRepo migrates fresh tables on the shared container and drops
// them when the test ends.
func setupTestRepo(t *testing.T) imghost.MetadataRepo {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()
	tables := randomTables(t)

	require.NoError(t, postgres.Migrate(ctx, pool, tables), "failed to migrate")
	t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

	repo, err := postgres.NewRepo(pool, tables)
	require.NoError(t, err)
	return repo
}
