// Package miniostore is an imghost.ObjectStore backed by MinIO through
// minio-go. Any S3-compatible service that minio-go can talk to works.
package miniostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sagarc03/imghost"
)

// Config holds the connection settings for a MinIO bucket.
type Config struct {
	// Endpoint is host[:port] without a scheme.
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicBaseURL is prefixed to keys by PublicReference. Defaults to
	// <scheme>://<endpoint>/<bucket>.
	PublicBaseURL string
	// EnsureBucket creates the bucket when missing.
	EnsureBucket bool
	// PublicRead installs an anonymous GetObject policy on the bucket. Only
	// applied with EnsureBucket.
	PublicRead bool
}

// Store implements imghost.ObjectStore on MinIO.
type Store struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// New creates the MinIO client and optionally prepares the bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("new minio store: endpoint and bucket are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("new minio store: %w", err)
	}

	s := &Store{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: publicBase(cfg),
	}

	if cfg.EnsureBucket {
		if err := s.ensureBucket(ctx, cfg.Region, cfg.PublicRead); err != nil {
			return nil, fmt.Errorf("new minio store: %w", err)
		}
	}

	return s, nil
}

func publicBase(cfg Config) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
}

func (s *Store) ensureBucket(ctx context.Context, region string, publicRead bool) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, mapError(err))
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return fmt.Errorf("create bucket %q: %w", s.bucket, mapError(err))
		}
		slog.Info("created bucket", "bucket", s.bucket)
	}

	if publicRead {
		if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
			return fmt.Errorf("set bucket policy: %w", mapError(err))
		}
	}
	return nil
}

// IssueUploadURL presigns a PUT for key. The Content-Type header is signed
// so the client must send the declared type.
func (s *Store) IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, key, ttl, url.Values{}, headers)
	if err != nil {
		return "", fmt.Errorf("issue upload url: %w", mapError(err))
	}
	return u.String(), nil
}

func (s *Store) IssueDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("issue download url: %w", mapError(err))
	}
	return u.String(), nil
}

func (s *Store) PublicReference(key string) string {
	return imghost.PublicURL(s.publicBase, key)
}

func (s *Store) InternalReference(key string) string {
	return "minio://" + s.bucket + "/" + key
}

// Delete removes the object at key from the bucket.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, mapError(err))
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", imghost.ErrStoreUnavailable, err)
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "":
		return fmt.Errorf("%w: %w", imghost.ErrStoreUnavailable, err)
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", imghost.ErrObjectNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", imghost.ErrAccessDenied, err)
	case "ServiceUnavailable", "SlowDown", "XMinioServerNotInitialized":
		return fmt.Errorf("%w: %w", imghost.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", imghost.ErrStore, err)
	}
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
