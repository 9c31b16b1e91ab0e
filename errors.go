package imghost

import "errors"

var (
	// ErrValidation is returned when required input is missing or malformed.
	// No side effect has occurred when it is returned.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when the caller identity cannot be resolved
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a resolved identity does not own the record
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrCorruptRecord is returned when a stored record has no storage key
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrAlreadyFinalized is returned by finalize under the reject policy
	ErrAlreadyFinalized = errors.New("already finalized")
)

// Errors reported by ObjectStore and MetadataIndex implementations.
var (
	// ErrStoreUnavailable is returned when a backend cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStore is returned when a backend call fails for any other reason
	ErrStore = errors.New("store error")
	// ErrAccessDenied is returned when backend credentials lack permission
	ErrAccessDenied = errors.New("access denied")
	// ErrObjectNotFound is returned by ObjectStore.Delete when the object is already gone
	ErrObjectNotFound = errors.New("object not found")
)
