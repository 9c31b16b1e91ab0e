package clientcli

import (
	"time"
)

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	Filename    string // optional, defaults to the local file name
	ContentType string // optional, auto-detect if empty
	Recursive   bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string `json:"local_path"`
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"mime_type"`
	Size        int64  `json:"size_bytes"`
	Err         error  `json:"-"` // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	ID        string
	LocalPath string // empty = derive from the URL, "-" = stdout
}

// DownloadResult represents the result of downloading an image.
type DownloadResult struct {
	ID          string `json:"id"`
	LocalPath   string `json:"local_path"`
	ContentType string `json:"mime_type"`
	Size        int64  `json:"size_bytes"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	IDs []string
}

// DeleteResult represents the result of deleting a single image.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListOptions configures a gallery listing.
type ListOptions struct {
	Limit int
}

// ListResult is the caller's gallery, newest first.
type ListResult struct {
	Items []ImageInfo `json:"items"`
}

// ImageInfo is one gallery entry.
type ImageInfo struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"mime_type"`
	Visibility  string    `json:"visibility"`
	CreatedAt   time.Time `json:"created_at"`
}

// KeyResult is a freshly issued API key and the owner it belongs to.
type KeyResult struct {
	APIKey   string `json:"api_key"`
	UID      string `json:"uid"`
	Username string `json:"username"`
}

// uploadHandle mirrors the server's upload request response.
type uploadHandle struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Filename  string `json:"filename"`
	UploadURL string `json:"upload_url"`
}

// completeResult mirrors the server's upload complete response.
type completeResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// errorResponse mirrors the server's error body.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
