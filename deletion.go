package imghost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Deleter removes records on behalf of their owner.
type Deleter struct {
	store       ObjectStore
	index       MetadataIndex
	callTimeout time.Duration
}

func NewDeleter(store ObjectStore, index MetadataIndex, callTimeout time.Duration) *Deleter {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Deleter{store: store, index: index, callTimeout: callTimeout}
}

// Delete removes the object and its record when requesterID owns it.
//
// The steps are:
//  1. Look up the record (ErrNotFound if absent)
//  2. Check ownership (ErrForbidden, nothing is mutated)
//  3. Check the record has a storage key (ErrCorruptRecord, logged)
//  4. Delete the object; an already absent object counts as deleted
//  5. Delete the record and its listing entry
//
// Storage goes first. If it fails the index is left untouched and the
// error wraps ErrStore, so the call can be retried. Steps 4 and 5 run to
// completion even if ctx is cancelled.
func (d *Deleter) Delete(ctx context.Context, id, requesterID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	if requesterID == "" {
		return fmt.Errorf("delete %s: %w", id, ErrUnauthorized)
	}

	if id == "" {
		return fmt.Errorf("delete: %w: id cannot be empty", ErrValidation)
	}

	readCtx, cancelRead := callContext(ctx, d.callTimeout)
	rec, err := d.index.GetRecord(readCtx, id)
	cancelRead()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	if rec.OwnerID != requesterID {
		return fmt.Errorf("delete %s: %w", id, ErrForbidden)
	}

	if rec.StorageKey == "" {
		slog.Error("record has no storage key", "id", id, "owner", rec.OwnerID)
		return fmt.Errorf("delete %s: %w", id, ErrCorruptRecord)
	}

	mutCtx, cancel := mutationContext(ctx, d.callTimeout)
	defer cancel()

	if err := d.store.Delete(mutCtx, rec.StorageKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("delete %s: %w: %w", id, ErrStore, err)
	}

	indexCtx, cancelIndex := mutationContext(ctx, d.callTimeout)
	defer cancelIndex()

	if err := d.index.DeleteRecord(indexCtx, id, rec.OwnerID); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	return nil
}
