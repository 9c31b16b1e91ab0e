package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/imghost"
)

// Migrate creates the owners and records tables with their indexes.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables imghost.Tables) error {
	if err := createOwnersTable(ctx, pool, tables.Owners); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Owners, err)
	}
	if err := createRecordsTable(ctx, pool, tables.Records); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Records, err)
	}
	return nil
}

// DropTables removes both tables. It exists for tests and the migrate
// command's --drop flag.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables imghost.Tables) error {
	for _, name := range []string{tables.Records, tables.Owners} {
		sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{name}.Sanitize())
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("migrate down %s: %w", name, err)
		}
	}
	return nil
}

func createRecordsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexOwnerList := pgx.Identifier{fmt.Sprintf("idx_%s_owner_list", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			reference TEXT NOT NULL,
			display_name TEXT NOT NULL,
			content_type TEXT NOT NULL,
			visibility TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (owner_id, created_at DESC, id DESC);
	`,
		quotedTable,
		indexOwnerList, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

func createOwnersTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, pgx.Identifier{tableName}.Sanitize())

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create owners table: %w", err)
	}
	return nil
}
