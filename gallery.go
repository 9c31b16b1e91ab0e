package imghost

import (
	"context"
	"fmt"
	"time"
)

// DefaultGalleryLimit is the number of records List returns when no limit is given.
const DefaultGalleryLimit = 50

// DefaultLocatorPrefix prefixes the same-origin fallback locator for records
// that have neither a usable reference nor a storage key.
const DefaultLocatorPrefix = "/api/v1/image/"

// GalleryConfig holds options for GalleryResolver.
type GalleryConfig struct {
	DefaultLimit  int           // Limit used when the caller passes <= 0 (default: 50)
	CallTimeout   time.Duration // Per backend call timeout (default: 10s)
	SignPrivate   bool          // Resolve private records through download URLs
	DownloadTTL   time.Duration // Lifetime of download URLs when SignPrivate is set (default: 15m)
	LocatorPrefix string        // Prefix of the fallback locator (default: /api/v1/image/)
}

func (c GalleryConfig) withDefaults() GalleryConfig {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultGalleryLimit
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.DownloadTTL <= 0 {
		c.DownloadTTL = 15 * time.Minute
	}
	if c.LocatorPrefix == "" {
		c.LocatorPrefix = DefaultLocatorPrefix
	}
	return c
}

// GalleryResolver lists an owner's records and repairs references that
// cannot be handed to a client as they are.
type GalleryResolver struct {
	store ObjectStore
	index MetadataIndex
	cfg   GalleryConfig
}

func NewGalleryResolver(store ObjectStore, index MetadataIndex, cfg GalleryConfig) *GalleryResolver {
	return &GalleryResolver{store: store, index: index, cfg: cfg.withDefaults()}
}

// List returns up to limit records of ownerID, newest first.
//
// Listing entries whose record has vanished are skipped. Every returned
// record carries a usable reference: stored references that fail
// IsUsableReference are rebuilt from the storage key, and records without a
// key fall back to a same-origin locator derived from the id. Repair never
// changes the order and is not written back to the index.
func (g *GalleryResolver) List(ctx context.Context, ownerID string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}

	if ownerID == "" {
		return nil, fmt.Errorf("list gallery: %w", ErrUnauthorized)
	}

	if limit <= 0 {
		limit = g.cfg.DefaultLimit
	}

	listCtx, cancelList := callContext(ctx, g.cfg.CallTimeout)
	ids, err := g.index.ListOwnerIDs(listCtx, ownerID, limit)
	cancelList()
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}

	if len(ids) == 0 {
		return []Record{}, nil
	}

	batchCtx, cancelBatch := callContext(ctx, g.cfg.CallTimeout)
	found, err := g.index.GetRecordsBatch(batchCtx, ids)
	cancelBatch()
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}

	records := make([]Record, 0, len(found))
	for _, rec := range found {
		if rec == nil {
			continue
		}

		resolved, resolveErr := g.Resolve(ctx, *rec)
		if resolveErr != nil {
			return nil, fmt.Errorf("list gallery: %w", resolveErr)
		}
		records = append(records, resolved)
	}

	return records, nil
}

// Resolve returns rec with a usable reference.
func (g *GalleryResolver) Resolve(ctx context.Context, rec Record) (Record, error) {
	if g.cfg.SignPrivate && rec.Visibility == VisibilityPrivate && rec.StorageKey != "" {
		callCtx, cancel := callContext(ctx, g.cfg.CallTimeout)
		defer cancel()

		ref, err := g.store.IssueDownloadURL(callCtx, rec.StorageKey, g.cfg.DownloadTTL)
		if err != nil {
			return Record{}, fmt.Errorf("resolve %s: %w", rec.ID, err)
		}
		rec.Reference = ref
		return rec, nil
	}

	if IsUsableReference(rec.Reference) {
		return rec, nil
	}

	if rec.StorageKey != "" {
		rec.Reference = g.store.PublicReference(rec.StorageKey)
		return rec, nil
	}

	rec.Reference = g.cfg.LocatorPrefix + rec.ID
	return rec, nil
}
