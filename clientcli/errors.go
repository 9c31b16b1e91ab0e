package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
)

// Errors for configuration validation.
var (
	ErrAPIKeyRequired = errors.New("api key is required")
	ErrConfigRequired = errors.New("config is required")
)

// Errors for input validation.
var (
	ErrNoIDs     = errors.New("no image ids provided")
	ErrEmptyPath = errors.New("path is required")
	ErrEmptyID   = errors.New("image id is required")
)
