package imghost_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/imghost"
)

type SpyObjectStore struct {
	mock.Mock
}

func (s *SpyObjectStore) IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	args := s.Called(ctx, key, contentType, ttl)
	return args.String(0), args.Error(1)
}

func (s *SpyObjectStore) IssueDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := s.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

// PublicReference and InternalReference are pure, so the spy computes them
// instead of recording calls.
func (s *SpyObjectStore) PublicReference(key string) string {
	return imghost.PublicURL("https://cdn.example.com/bucket", key)
}

func (s *SpyObjectStore) InternalReference(key string) string {
	return "s3://bucket/" + key
}

func (s *SpyObjectStore) Delete(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

type SpyMetadataIndex struct {
	mock.Mock
}

func (s *SpyMetadataIndex) PutRecord(ctx context.Context, rec imghost.Record) error {
	args := s.Called(ctx, rec)
	return args.Error(0)
}

func (s *SpyMetadataIndex) GetRecord(ctx context.Context, id string) (imghost.Record, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(imghost.Record), args.Error(1)
}

func (s *SpyMetadataIndex) GetRecordsBatch(ctx context.Context, ids []string) ([]*imghost.Record, error) {
	args := s.Called(ctx, ids)
	recs, _ := args.Get(0).([]*imghost.Record)
	return recs, args.Error(1)
}

func (s *SpyMetadataIndex) ListOwnerIDs(ctx context.Context, ownerID string, limit int) ([]string, error) {
	args := s.Called(ctx, ownerID, limit)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (s *SpyMetadataIndex) DeleteRecord(ctx context.Context, id, ownerID string) error {
	args := s.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (s *SpyMetadataIndex) Ping(ctx context.Context) error {
	args := s.Called(ctx)
	return args.Error(0)
}

type SpyOwnerRegistry struct {
	mock.Mock
}

func (s *SpyOwnerRegistry) CreateOwner(ctx context.Context, owner imghost.Owner) error {
	args := s.Called(ctx, owner)
	return args.Error(0)
}

func (s *SpyOwnerRegistry) GetOwner(ctx context.Context, id string) (imghost.Owner, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(imghost.Owner), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func NewTestService(t *testing.T, cfg imghost.ServiceConfig) (*imghost.Service, *SpyObjectStore, *SpyMetadataIndex, *SpyOwnerRegistry) {
	t.Helper()

	store := new(SpyObjectStore)
	index := new(SpyMetadataIndex)
	owners := new(SpyOwnerRegistry)

	if cfg.Now == nil {
		cfg.Now = func() time.Time { return fixedNow }
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return "img_1" }
	}

	s, err := imghost.NewService(store, index, owners, cfg)
	require.NoError(t, err, "new service")
	return s, store, index, owners
}
