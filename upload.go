package imghost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UploadConfig holds options for UploadCoordinator.
type UploadConfig struct {
	UploadTTL     time.Duration  // Lifetime of issued upload URLs (default: 1h)
	CallTimeout   time.Duration  // Per backend call timeout (default: 10s)
	MaxNameLength int            // Base name limit for NormalizeFilename (default: 120)
	Policy        FinalizePolicy // Behavior on re-finalize (default: overwrite)
	Visibility    Visibility     // Visibility of new records (default: private)

	Now   func() time.Time
	NewID func() string
}

func (c UploadConfig) withDefaults() UploadConfig {
	if c.UploadTTL <= 0 {
		c.UploadTTL = time.Hour
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.MaxNameLength <= 0 {
		c.MaxNameLength = DefaultMaxNameLength
	}
	if c.Policy == "" {
		c.Policy = FinalizeOverwrite
	}
	if c.Visibility == "" {
		c.Visibility = VisibilityPrivate
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = NewRecordID
	}
	return c
}

// UploadCoordinator runs the two-phase upload protocol: Initiate hands the
// client a handle and an upload URL, Finalize records the object once the
// client reports the transfer done.
//
// Between the two calls nothing is persisted. Finalize trusts the client's
// claim that the bytes were written; it does not check the object store.
type UploadCoordinator struct {
	store ObjectStore
	index MetadataIndex
	cfg   UploadConfig
}

func NewUploadCoordinator(store ObjectStore, index MetadataIndex, cfg UploadConfig) (*UploadCoordinator, error) {
	cfg = cfg.withDefaults()
	if !cfg.Policy.IsValid() {
		return nil, fmt.Errorf("new upload coordinator: invalid finalize policy: %s", cfg.Policy)
	}
	if !cfg.Visibility.IsValid() {
		return nil, fmt.Errorf("new upload coordinator: invalid visibility: %s", cfg.Visibility)
	}
	return &UploadCoordinator{store: store, index: index, cfg: cfg}, nil
}

// Initiate normalizes the filename, generates a fresh id, derives the
// storage key as owner/id/name and asks the store for an upload URL.
// The metadata index is never touched.
func (u *UploadCoordinator) Initiate(ctx context.Context, ownerID, rawFilename, contentType string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, fmt.Errorf("initiate upload: %w", err)
	}

	if ownerID == "" {
		return Handle{}, fmt.Errorf("initiate upload: %w", ErrUnauthorized)
	}

	if strings.TrimSpace(rawFilename) == "" {
		return Handle{}, fmt.Errorf("initiate upload: %w: filename cannot be empty", ErrValidation)
	}

	if strings.TrimSpace(contentType) == "" {
		return Handle{}, fmt.Errorf("initiate upload: %w: content type cannot be empty", ErrValidation)
	}

	name := NormalizeFilename(rawFilename, u.cfg.MaxNameLength)
	id := u.cfg.NewID()
	key := StorageKey(ownerID, id, name)

	callCtx, cancel := callContext(ctx, u.cfg.CallTimeout)
	defer cancel()

	uploadURL, err := u.store.IssueUploadURL(callCtx, key, contentType, u.cfg.UploadTTL)
	if err != nil {
		return Handle{}, fmt.Errorf("initiate upload %s: %w", id, err)
	}

	return Handle{
		ID:          id,
		StorageKey:  key,
		DisplayName: name,
		UploadURL:   uploadURL,
	}, nil
}

// Finalize writes the record for a completed transfer and returns its id
// and resolved reference.
//
// The owner comes only from ownerID, the authenticated caller. The storage
// key must sit under ownerID/req.ID/ so a caller can never register an
// object from another namespace. An existing record owned by someone else
// is never overwritten. An existing record owned by the caller is replaced
// under FinalizeOverwrite and rejected with ErrAlreadyFinalized under
// FinalizeReject.
//
// The record write runs to completion even if ctx is cancelled.
func (u *UploadCoordinator) Finalize(ctx context.Context, ownerID string, req FinalizeRequest) (FinalizeResult, error) {
	if err := ctx.Err(); err != nil {
		return FinalizeResult{}, fmt.Errorf("finalize upload: %w", err)
	}

	if ownerID == "" {
		return FinalizeResult{}, fmt.Errorf("finalize upload: %w", ErrUnauthorized)
	}

	if err := validateFinalizeRequest(ownerID, req); err != nil {
		return FinalizeResult{}, fmt.Errorf("finalize upload: %w", err)
	}

	readCtx, cancelRead := callContext(ctx, u.cfg.CallTimeout)
	existing, err := u.index.GetRecord(readCtx, req.ID)
	cancelRead()

	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return FinalizeResult{}, fmt.Errorf("finalize upload %s: %w", req.ID, err)
	case existing.OwnerID != ownerID:
		return FinalizeResult{}, fmt.Errorf("finalize upload %s: %w", req.ID, ErrForbidden)
	case u.cfg.Policy == FinalizeReject:
		return FinalizeResult{}, fmt.Errorf("finalize upload %s: %w", req.ID, ErrAlreadyFinalized)
	}

	rec := Record{
		ID:          req.ID,
		OwnerID:     ownerID,
		StorageKey:  req.StorageKey,
		DisplayName: NormalizeFilename(req.DisplayName, u.cfg.MaxNameLength),
		ContentType: req.ContentType,
		Visibility:  u.cfg.Visibility,
		CreatedAt:   u.cfg.Now().UTC(),
	}

	resolved := u.store.PublicReference(rec.StorageKey)
	rec.Reference = resolved
	if rec.Visibility == VisibilityPrivate {
		rec.Reference = u.store.InternalReference(rec.StorageKey)
	}

	writeCtx, cancelWrite := mutationContext(ctx, u.cfg.CallTimeout)
	defer cancelWrite()

	if err := u.index.PutRecord(writeCtx, rec); err != nil {
		return FinalizeResult{}, fmt.Errorf("finalize upload %s: %w", req.ID, err)
	}

	return FinalizeResult{ID: rec.ID, Reference: resolved}, nil
}

func validateFinalizeRequest(ownerID string, req FinalizeRequest) error {
	if req.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrValidation)
	}

	if req.StorageKey == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrValidation)
	}

	if req.DisplayName == "" {
		return fmt.Errorf("%w: filename cannot be empty", ErrValidation)
	}

	if req.ContentType == "" {
		return fmt.Errorf("%w: content type cannot be empty", ErrValidation)
	}

	if !IsValidKey(req.StorageKey) {
		return fmt.Errorf("%w: invalid key %q", ErrValidation, req.StorageKey)
	}

	if !strings.HasPrefix(req.StorageKey, ownerID+"/"+req.ID+"/") {
		return fmt.Errorf("%w: key %q is outside the caller's namespace", ErrValidation, req.StorageKey)
	}

	return nil
}
