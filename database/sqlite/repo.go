// Package sqlite implements the metadata repo using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sagarc03/imghost"
)

// timeFormat is fixed width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const recordColumns = `id, owner_id, storage_key, reference, display_name, content_type, visibility, created_at`

type Repo struct {
	db     *sql.DB
	tables imghost.Tables
}

func NewRepo(db *sql.DB, tables imghost.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tables: tables}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return wrapErr("ping", err)
	}
	return nil
}

func (r *Repo) PutRecord(ctx context.Context, rec imghost.Record) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = excluded.owner_id,
			storage_key = excluded.storage_key,
			reference = excluded.reference,
			display_name = excluded.display_name,
			content_type = excluded.content_type,
			visibility = excluded.visibility,
			created_at = excluded.created_at`, quoteIdentifier(r.tables.Records), recordColumns)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, rec.StorageKey, rec.Reference, rec.DisplayName,
		rec.ContentType, string(rec.Visibility), rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return wrapErr("put record", err)
	}

	return nil
}

func (r *Repo) GetRecord(ctx context.Context, id string) (imghost.Record, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE id = ?`, recordColumns, quoteIdentifier(r.tables.Records))

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE id IN (%s)`, recordColumns, quoteIdentifier(r.tables.Records), placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("get records batch", err)
	}
	defer func() { _ = rows.Close() }()

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

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id FROM %s
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, quoteIdentifier(r.tables.Records))

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, wrapErr("list owner ids", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list owner ids: scan: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr("list owner ids", err)
	}

	return ids, nil
}

// DeleteRecord removes the record. The owner listing is derived from the
// same row, so both go in one statement. Deleting an absent row is a no-op.
func (r *Repo) DeleteRecord(ctx context.Context, id, ownerID string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE id = ? AND owner_id = ?`, quoteIdentifier(r.tables.Records))

	if _, err := r.db.ExecContext(ctx, query, id, ownerID); err != nil {
		return wrapErr("delete record", err)
	}

	return nil
}

func (r *Repo) CreateOwner(ctx context.Context, owner imghost.Owner) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, username, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING`, quoteIdentifier(r.tables.Owners))

	_, err := r.db.ExecContext(ctx, query, owner.ID, owner.Username, owner.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return wrapErr("create owner", err)
	}

	return nil
}

func (r *Repo) GetOwner(ctx context.Context, id string) (imghost.Owner, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, username, created_at FROM %s WHERE id = ?`, quoteIdentifier(r.tables.Owners))

	var o imghost.Owner
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.Username, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return imghost.Owner{}, imghost.ErrNotFound
		}
		return imghost.Owner{}, wrapErr("get owner", err)
	}

	o.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return imghost.Owner{}, fmt.Errorf("get owner: parse created_at: %w", err)
	}

	return o, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (imghost.Record, error) {
	var rec imghost.Record
	var visibility, createdAt string

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.StorageKey, &rec.Reference, &rec.DisplayName,
		&rec.ContentType, &visibility, &createdAt,
	)
	if err != nil {
		return imghost.Record{}, err
	}

	rec.Visibility = imghost.Visibility(visibility)
	rec.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return imghost.Record{}, fmt.Errorf("parse created_at: %w", err)
	}

	return rec, nil
}

// wrapErr marks connection level failures as ErrStoreUnavailable.
func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%s: %w: %w", op, imghost.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
