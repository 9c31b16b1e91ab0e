package imghost

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Visibility controls how a record's reference is resolved for readers.
type Visibility string

const (
	// VisibilityPrivate records store an internal reference and are resolved on read.
	VisibilityPrivate Visibility = "private"
	// VisibilityPublic records store a directly resolvable public reference.
	VisibilityPublic Visibility = "public"
)

func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic:
		return true
	default:
		return false
	}
}

func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(s)
	if !v.IsValid() {
		return "", fmt.Errorf("invalid visibility: %s (valid values: private, public)", s)
	}
	return v, nil
}

// FinalizePolicy decides what happens when finalize is called for an id
// that already has a record.
type FinalizePolicy string

const (
	// FinalizeOverwrite replaces the existing record (last write wins).
	FinalizeOverwrite FinalizePolicy = "overwrite"
	// FinalizeReject fails with ErrAlreadyFinalized.
	FinalizeReject FinalizePolicy = "reject"
)

func (p FinalizePolicy) IsValid() bool {
	switch p {
	case FinalizeOverwrite, FinalizeReject:
		return true
	default:
		return false
	}
}

func ParseFinalizePolicy(s string) (FinalizePolicy, error) {
	p := FinalizePolicy(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid finalize policy: %s (valid values: overwrite, reject)", s)
	}
	return p, nil
}

// Record is the persisted metadata for one uploaded object.
type Record struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	StorageKey  string     `json:"key"`
	Reference   string     `json:"url"`
	DisplayName string     `json:"filename"`
	ContentType string     `json:"mime_type"`
	Visibility  Visibility `json:"visibility"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Owner is an identity that can hold records.
type Owner struct {
	ID        string    `json:"uid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Handle is returned by Initiate. It is held by the client and never
// persisted until Finalize is called with it.
type Handle struct {
	ID          string `json:"id"`
	StorageKey  string `json:"key"`
	DisplayName string `json:"filename"`
	UploadURL   string `json:"upload_url"`
}

// FinalizeRequest carries the client's claim about a completed transfer.
// The owner is never part of it; Finalize takes the owner separately.
type FinalizeRequest struct {
	ID          string
	StorageKey  string
	DisplayName string
	ContentType string
}

// FinalizeResult is returned by Finalize.
type FinalizeResult struct {
	ID        string `json:"id"`
	Reference string `json:"url"`
}

// Tables holds configurable table names for the SQL metadata backends.
type Tables struct {
	Records string `mapstructure:"records"`
	Owners  string `mapstructure:"owners"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Records == "" {
		return errors.New("validate tables: records table name cannot be empty")
	}

	if !IsValidTableName(t.Records) {
		return fmt.Errorf("validate tables: invalid records table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Records)
	}

	if t.Owners == "" {
		return errors.New("validate tables: owners table name cannot be empty")
	}

	if !IsValidTableName(t.Owners) {
		return fmt.Errorf("validate tables: invalid owners table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Owners)
	}

	if t.Records == t.Owners {
		return fmt.Errorf("validate tables: records and owners tables must differ: %s", t.Records)
	}

	return nil
}
