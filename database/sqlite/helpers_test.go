package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/database/sqlite"
)

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

// setupTestRepo creates a migrated in-memory repo with unique table names.
func setupTestRepo(t *testing.T) imghost.MetadataRepo {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.GetRepo()
}
