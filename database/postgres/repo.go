// Package postgres implements the metadata repo using PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/imghost"
)

const recordColumns = `id, owner_id, storage_key, reference, display_name, content_type, visibility, created_at`

type Repo struct {
	pool   *pgxpool.Pool
	tables imghost.Tables
}

func NewRepo(pool *pgxpool.Pool, tables imghost.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tables: tables}, nil
}

func (r *Repo) records() string {
	return pgx.Identifier{r.tables.Records}.Sanitize()
}

func (r *Repo) owners() string {
	return pgx.Identifier{r.tables.Owners}.Sanitize()
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return wrapErr("ping", err)
	}
	return nil
}

func (r *Repo) PutRecord(ctx context.Context, rec imghost.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
			storage_key = EXCLUDED.storage_key,
			reference = EXCLUDED.reference,
			display_name = EXCLUDED.display_name,
			content_type = EXCLUDED.content_type,
			visibility = EXCLUDED.visibility,
			created_at = EXCLUDED.created_at
	`, r.records(), recordColumns)

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.OwnerID, rec.StorageKey, rec.Reference, rec.DisplayName,
		rec.ContentType, string(rec.Visibility), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return wrapErr("put record", err)
	}

	return nil
}

func (r *Repo) GetRecord(ctx context.Context, id string) (imghost.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, recordColumns, r.records())

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return imghost.Record{}, imghost.ErrNotFound
		}
		return imghost.Record{}, wrapErr("get record", err)
	}

	return rec, nil
}

func (r *Repo) GetRecordsBatch(ctx context.Context, ids []string) ([]*imghost.Record, error) {
	out := make([]*imghost.Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, recordColumns, r.records())

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, wrapErr("get records batch", err)
	}
	defer rows.Close()

	found := make(map[string]imghost.Record, len(ids))
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("get records batch: scan: %w", scanErr)
		}
		found[rec.ID] = rec
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr("get records batch", err)
	}

	for i, id := range ids {
		if rec, ok := found[id]; ok {
			out[i] = &rec
		}
	}

	return out, nil
}

func (r *Repo) ListOwnerIDs(ctx context.Context, ownerID string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, r.records())

	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, wrapErr("list owner ids", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("list owner ids", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// DeleteRecord removes the record row, which is also its listing entry.
func (r *Repo) DeleteRecord(ctx context.Context, id, ownerID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND owner_id = $2`, r.records())

	if _, err := r.pool.Exec(ctx, query, id, ownerID); err != nil {
		return wrapErr("delete record", err)
	}

	return nil
}

func (r *Repo) CreateOwner(ctx context.Context, owner imghost.Owner) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, username, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, r.owners())

	if _, err := r.pool.Exec(ctx, query, owner.ID, owner.Username, owner.CreatedAt.UTC()); err != nil {
		return wrapErr("create owner", err)
	}

	return nil
}

func (r *Repo) GetOwner(ctx context.Context, id string) (imghost.Owner, error) {
	query := fmt.Sprintf(`SELECT id, username, created_at FROM %s WHERE id = $1`, r.owners())

	var o imghost.Owner
	err := r.pool.QueryRow(ctx, query, id).Scan(&o.ID, &o.Username, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return imghost.Owner{}, imghost.ErrNotFound
		}
		return imghost.Owner{}, wrapErr("get owner", err)
	}

	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func scanRecord(row pgx.Row) (imghost.Record, error) {
	var rec imghost.Record
	var visibility string

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.StorageKey, &rec.Reference, &rec.DisplayName,
		&rec.ContentType, &visibility, &rec.CreatedAt,
	)
	if err != nil {
		return imghost.Record{}, err
	}

	rec.Visibility = imghost.Visibility(visibility)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// wrapErr marks connection level failures as ErrStoreUnavailable.
func wrapErr(op string, err error) error {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, imghost.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
