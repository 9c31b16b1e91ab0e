package imghost

import (
	"context"
	"time"
)

// ObjectStore is the gateway to the backing object store.
//
// Implementations never hold per-request state and must be safe for
// concurrent use. Every method reports transport failures as
// ErrStoreUnavailable and permission failures as ErrAccessDenied, wrapped
// with the operation that failed.
type ObjectStore interface {
	// IssueUploadURL returns a time-bounded URL that permits one write of
	// key with the declared content type. The store is not touched until
	// the holder performs the write.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - key: Storage key to authorize
	//   - contentType: Content type the client must send
	//   - ttl: How long the URL stays valid
	//
	// Returns:
	//   - string: The upload URL
	//   - error: ErrStoreUnavailable, ErrAccessDenied, or other backend errors
	IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// IssueDownloadURL returns a time-bounded URL that permits reading key.
	// It is used for records whose visibility requires gated access.
	IssueDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// PublicReference builds a directly resolvable URL for key assuming the
	// object is publicly readable. It is pure: no network call is made and
	// every path segment is percent-encoded.
	PublicReference(key string) string

	// InternalReference returns the store-internal URI for key, such as
	// s3://bucket/key. It is not usable by external callers.
	InternalReference(key string) string

	// Delete removes the object at key.
	//
	// Returns:
	//   - error: ErrObjectNotFound if the object is already gone (callers treat
	//     this as success), ErrStoreUnavailable, or other backend errors
	Delete(ctx context.Context, key string) error
}

// MetadataIndex persists object records and the per-owner listing.
//
// A record and its listing entry are always written and removed together,
// so observers never see one without the other. Implementations must offer
// read-your-writes consistency per record; ownership checks depend on it.
type MetadataIndex interface {
	// PutRecord upserts rec and sets its listing entry for rec.OwnerID,
	// scored by rec.CreatedAt, as one atomic unit of work.
	PutRecord(ctx context.Context, rec Record) error

	// GetRecord retrieves a record by id.
	//
	// Returns:
	//   - Record: The record if found
	//   - error: ErrNotFound if id does not exist, or other backend errors
	GetRecord(ctx context.Context, id string) (Record, error)

	// GetRecordsBatch retrieves records for ids in a single round trip.
	// The result has the same length and order as ids; absent records are
	// nil entries, never errors.
	GetRecordsBatch(ctx context.Context, ids []string) ([]*Record, error)

	// ListOwnerIDs returns up to limit record ids for ownerID, newest first.
	ListOwnerIDs(ctx context.Context, ownerID string, limit int) ([]string, error)

	// DeleteRecord removes the record and its listing entry atomically.
	// Deleting an absent record is a no-op, not an error.
	DeleteRecord(ctx context.Context, id, ownerID string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// OwnerRegistry creates and looks up owners. Owners are created once and
// never mutated or deleted.
type OwnerRegistry interface {
	// CreateOwner stores a new owner. Creating an id that already exists
	// is a no-op.
	CreateOwner(ctx context.Context, owner Owner) error

	// GetOwner returns ErrNotFound if the owner does not exist.
	GetOwner(ctx context.Context, id string) (Owner, error)
}

// MetadataRepo is what a metadata backend provides: the record index and
// the owner registry, usually sharing one connection.
type MetadataRepo interface {
	MetadataIndex
	OwnerRegistry
}
