// Package redis implements the metadata repo on Redis.
//
// Each record is a hash at img:<id>. Each owner's listing is a sorted set
// at user:<uid>:images scored by creation time in milliseconds, and each
// owner is a hash at user:<uid>. Every key carries the configured prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sagarc03/imghost"
)

const (
	fieldID         = "id"
	fieldOwner      = "owner_uid"
	fieldKey        = "key"
	fieldURL        = "url"
	fieldFilename   = "filename"
	fieldMime       = "mime"
	fieldVisibility = "visibility"
	fieldCreatedAt  = "created_at"
	fieldUsername   = "username"
	fieldUID        = "uid"
)

type Repo struct {
	client goredis.UniversalClient
	prefix string
}

// NewRepo wraps client. prefix is prepended verbatim to every key.
func NewRepo(client goredis.UniversalClient, prefix string) *Repo {
	return &Repo{client: client, prefix: prefix}
}

func (r *Repo) imgKey(id string) string {
	return r.prefix + "img:" + id
}

func (r *Repo) userKey(uid string) string {
	return r.prefix + "user:" + uid
}

func (r *Repo) userImagesKey(uid string) string {
	return r.prefix + "user:" + uid + ":images"
}

func (r *Repo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return wrapErr("ping", err)
	}
	return nil
}

// PutRecord writes the record hash and its listing entry in one MULTI/EXEC.
func (r *Repo) PutRecord(ctx context.Context, rec imghost.Record) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, r.imgKey(rec.ID), map[string]any{
			fieldID:         rec.ID,
			fieldOwner:      rec.OwnerID,
			fieldKey:        rec.StorageKey,
			fieldURL:        rec.Reference,
			fieldFilename:   rec.DisplayName,
			fieldMime:       rec.ContentType,
			fieldVisibility: string(rec.Visibility),
			fieldCreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.ZAdd(ctx, r.userImagesKey(rec.OwnerID), goredis.Z{
			Score:  float64(rec.CreatedAt.UnixMilli()),
			Member: rec.ID,
		})
		return nil
	})
	if err != nil {
		return wrapErr("put record", err)
	}
	return nil
}

func (r *Repo) GetRecord(ctx context.Context, id string) (imghost.Record, error) {
	fields, err := r.client.HGetAll(ctx, r.imgKey(id)).Result()
	if err != nil {
		return imghost.Record{}, wrapErr("get record", err)
	}

	if len(fields) == 0 {
		return imghost.Record{}, imghost.ErrNotFound
	}

	return recordFromHash(id, fields), nil
}

// GetRecordsBatch pipelines one HGETALL per id.
func (r *Repo) GetRecordsBatch(ctx context.Context, ids []string) ([]*imghost.Record, error) {
	out := make([]*imghost.Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.imgKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("get records batch", err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec := recordFromHash(ids[i], fields)
		out[i] = &rec
	}

	return out, nil
}

func (r *Repo) ListOwnerIDs(ctx context.Context, ownerID string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	ids, err := r.client.ZRevRange(ctx, r.userImagesKey(ownerID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, wrapErr("list owner ids", err)
	}
	return ids, nil
}

// DeleteRecord removes the record hash and its listing entry in one
// MULTI/EXEC. Both commands are no-ops for absent keys.
func (r *Repo) DeleteRecord(ctx context.Context, id, ownerID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.imgKey(id))
		pipe.ZRem(ctx, r.userImagesKey(ownerID), id)
		return nil
	})
	if err != nil {
		return wrapErr("delete record", err)
	}
	return nil
}

// CreateOwner sets each owner field only if it is not already set, so an
// existing owner is never modified.
func (r *Repo) CreateOwner(ctx context.Context, owner imghost.Owner) error {
	key := r.userKey(owner.ID)
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldUID, owner.ID)
		pipe.HSetNX(ctx, key, fieldUsername, owner.Username)
		pipe.HSetNX(ctx, key, fieldCreatedAt, owner.CreatedAt.UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return wrapErr("create owner", err)
	}
	return nil
}

func (r *Repo) GetOwner(ctx context.Context, id string) (imghost.Owner, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return imghost.Owner{}, wrapErr("get owner", err)
	}

	if len(fields) == 0 {
		return imghost.Owner{}, imghost.ErrNotFound
	}

	return imghost.Owner{
		ID:        id,
		Username:  fields[fieldUsername],
		CreatedAt: parseTime(fields[fieldCreatedAt]),
	}, nil
}

func recordFromHash(id string, fields map[string]string) imghost.Record {
	return imghost.Record{
		ID:          id,
		OwnerID:     fields[fieldOwner],
		StorageKey:  fields[fieldKey],
		Reference:   fields[fieldURL],
		DisplayName: fields[fieldFilename],
		ContentType: fields[fieldMime],
		Visibility:  imghost.Visibility(fields[fieldVisibility]),
		CreatedAt:   parseTime(fields[fieldCreatedAt]),
	}
}

// parseTime accepts RFC 3339 and bare unix seconds. Anything else is the
// zero time; a bad timestamp should not hide the record.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}

// wrapErr marks connection level failures as ErrStoreUnavailable.
func wrapErr(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, goredis.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, imghost.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
