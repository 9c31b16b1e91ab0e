package imghost

import (
	"context"
	"fmt"
	"time"
)

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	UploadTTL      time.Duration  // Lifetime of upload URLs (default: 1h)
	DownloadTTL    time.Duration  // Lifetime of download URLs (default: 15m)
	CallTimeout    time.Duration  // Per backend call timeout (default: 10s)
	MaxNameLength  int            // Base name limit for NormalizeFilename (default: 120)
	GalleryLimit   int            // Default gallery page size (default: 50)
	FinalizePolicy FinalizePolicy // overwrite or reject (default: overwrite)
	Visibility     Visibility     // private or public (default: private)
	SignPrivate    bool           // Resolve private gallery entries through download URLs

	Now   func() time.Time
	NewID func() string
}

// Service wires the upload coordinator, gallery resolver and deleter to one
// object store and one metadata index. It is what transports talk to.
type Service struct {
	uploads     *UploadCoordinator
	gallery     *GalleryResolver
	deleter     *Deleter
	store       ObjectStore
	index       MetadataIndex
	owners      OwnerRegistry
	downloadTTL time.Duration
	callTimeout time.Duration
	now         func() time.Time
}

func NewService(store ObjectStore, index MetadataIndex, owners OwnerRegistry, cfg ServiceConfig) (*Service, error) {
	if store == nil || index == nil || owners == nil {
		return nil, fmt.Errorf("new service: store, index and owner registry are required")
	}

	uploads, err := NewUploadCoordinator(store, index, UploadConfig{
		UploadTTL:     cfg.UploadTTL,
		CallTimeout:   cfg.CallTimeout,
		MaxNameLength: cfg.MaxNameLength,
		Policy:        cfg.FinalizePolicy,
		Visibility:    cfg.Visibility,
		Now:           cfg.Now,
		NewID:         cfg.NewID,
	})
	if err != nil {
		return nil, fmt.Errorf("new service: %w", err)
	}

	gallery := NewGalleryResolver(store, index, GalleryConfig{
		DefaultLimit: cfg.GalleryLimit,
		CallTimeout:  cfg.CallTimeout,
		SignPrivate:  cfg.SignPrivate,
		DownloadTTL:  cfg.DownloadTTL,
	})

	downloadTTL := cfg.DownloadTTL
	if downloadTTL <= 0 {
		downloadTTL = 15 * time.Minute
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		uploads:     uploads,
		gallery:     gallery,
		deleter:     NewDeleter(store, index, callTimeout),
		store:       store,
		index:       index,
		owners:      owners,
		downloadTTL: downloadTTL,
		callTimeout: callTimeout,
		now:         now,
	}, nil
}

// Initiate starts an upload for ownerID. See UploadCoordinator.Initiate.
func (s *Service) Initiate(ctx context.Context, ownerID, filename, contentType string) (Handle, error) {
	return s.uploads.Initiate(ctx, ownerID, filename, contentType)
}

// Finalize records a completed upload for ownerID. See UploadCoordinator.Finalize.
func (s *Service) Finalize(ctx context.Context, ownerID string, req FinalizeRequest) (FinalizeResult, error) {
	return s.uploads.Finalize(ctx, ownerID, req)
}

// List returns ownerID's gallery. See GalleryResolver.List.
func (s *Service) List(ctx context.Context, ownerID string, limit int) ([]Record, error) {
	return s.gallery.List(ctx, ownerID, limit)
}

// Delete removes a record owned by requesterID. See Deleter.Delete.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	return s.deleter.Delete(ctx, id, requesterID)
}

// DownloadURL returns a time-bounded URL for reading the object of record id.
// It fails with ErrNotFound for unknown ids and ErrCorruptRecord for records
// without a storage key.
func (s *Service) DownloadURL(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("download url: %w", err)
	}

	if id == "" {
		return "", fmt.Errorf("download url: %w: id cannot be empty", ErrValidation)
	}

	readCtx, cancelRead := callContext(ctx, s.callTimeout)
	rec, err := s.index.GetRecord(readCtx, id)
	cancelRead()
	if err != nil {
		return "", fmt.Errorf("download url %s: %w", id, err)
	}

	if rec.StorageKey == "" {
		return "", fmt.Errorf("download url %s: %w", id, ErrCorruptRecord)
	}

	callCtx, cancel := callContext(ctx, s.callTimeout)
	defer cancel()

	u, err := s.store.IssueDownloadURL(callCtx, rec.StorageKey, s.downloadTTL)
	if err != nil {
		return "", fmt.Errorf("download url %s: %w", id, err)
	}

	return u, nil
}

// RegisterOwner creates a new owner with a generated id.
func (s *Service) RegisterOwner(ctx context.Context) (Owner, error) {
	if err := ctx.Err(); err != nil {
		return Owner{}, fmt.Errorf("register owner: %w", err)
	}

	id, username := NewOwnerID()
	owner := Owner{ID: id, Username: username, CreatedAt: s.now().UTC()}

	writeCtx, cancel := mutationContext(ctx, s.callTimeout)
	defer cancel()

	if err := s.owners.CreateOwner(writeCtx, owner); err != nil {
		return Owner{}, fmt.Errorf("register owner: %w", err)
	}

	return owner, nil
}

// LookupOwner returns the owner with id, or ErrNotFound.
func (s *Service) LookupOwner(ctx context.Context, id string) (Owner, error) {
	callCtx, cancel := callContext(ctx, s.callTimeout)
	defer cancel()

	owner, err := s.owners.GetOwner(callCtx, id)
	if err != nil {
		return Owner{}, fmt.Errorf("lookup owner %s: %w", id, err)
	}
	return owner, nil
}

// Ping verifies the metadata index is reachable.
func (s *Service) Ping(ctx context.Context) error {
	callCtx, cancel := callContext(ctx, s.callTimeout)
	defer cancel()

	if err := s.index.Ping(callCtx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
