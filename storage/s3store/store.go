// Package s3store is an imghost.ObjectStore backed by Amazon S3 or any
// S3-compatible service reachable through a custom endpoint.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/sagarc03/imghost"
)

// Config holds the connection settings for an S3 bucket.
type Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible services.
	Endpoint  string
	AccessKey string
	SecretKey string
	// UsePathStyle addresses the bucket as <endpoint>/<bucket>.
	UsePathStyle bool
	// PublicBaseURL is prefixed to keys by PublicReference. When empty it is
	// derived from Endpoint or the AWS virtual-hosted address.
	PublicBaseURL string
	// RetryMaxAttempts overrides the SDK retry budget. Zero keeps the default.
	RetryMaxAttempts int
}

// Store implements imghost.ObjectStore on S3.
type Store struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	publicBase string
}

// New loads the AWS configuration and creates a Store. Static credentials
// are used when AccessKey is set; otherwise the default credential chain
// applies.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 store: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.RetryMaxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(cfg.RetryMaxAttempts))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		publicBase: publicBase(cfg),
	}, nil
}

func publicBase(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "" && cfg.UsePathStyle:
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	case cfg.Endpoint != "":
		scheme, host, found := strings.Cut(strings.TrimRight(cfg.Endpoint, "/"), "://")
		if !found {
			return "https://" + cfg.Bucket + "." + scheme
		}
		return scheme + "://" + cfg.Bucket + "." + host
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// IssueUploadURL presigns a PutObject for key with the given content type.
func (s *Store) IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("issue upload url: %w", mapError(err))
	}
	return req.URL, nil
}

// IssueDownloadURL presigns a GetObject for key.
func (s *Store) IssueDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("issue download url: %w", mapError(err))
	}
	return req.URL, nil
}

func (s *Store) PublicReference(key string) string {
	return imghost.PublicURL(s.publicBase, key)
}

func (s *Store) InternalReference(key string) string {
	return "s3://" + s.bucket + "/" + key
}

// Delete removes key. S3 reports success for absent keys, so
// imghost.ErrObjectNotFound only surfaces from stores that say otherwise.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, mapError(err))
	}
	return nil
}

// mapError translates SDK errors into the imghost gateway errors. The
// original error stays in the chain.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", imghost.ErrStoreUnavailable, err)
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", imghost.ErrStoreUnavailable, err)
	}

	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", imghost.ErrObjectNotFound, err)
	case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", imghost.ErrAccessDenied, err)
	case "ServiceUnavailable", "SlowDown", "RequestTimeout":
		return fmt.Errorf("%w: %w", imghost.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", imghost.ErrStore, err)
	}
}
