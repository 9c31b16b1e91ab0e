package imghost

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// IsValidKey validates that a string is usable as a storage key.
// It checks that the key:
//   - is not empty, ".", or "/"
//   - is relative (does not start with "/")
//   - does not end with "/"
//   - does not contain ".." (path traversal)
//   - does not contain "//" (empty segments)
//   - does not contain invalid characters: \ ? # ~
//   - is valid UTF-8
//   - does not contain "." segments (/., /./, or ending with /.)
//   - does not contain null bytes, control characters (< 0x20), DEL (0x7f), or whitespace
func IsValidKey(k string) bool {
	if k == "" || k == "/" || k == "." {
		return false
	}

	if k[0] == '/' {
		return false
	}

	if strings.HasSuffix(k, "/") {
		return false
	}

	if strings.Contains(k, "..") {
		return false
	}

	if strings.Contains(k, "//") {
		return false
	}

	if strings.ContainsAny(k, `\?#~`) {
		return false
	}

	if !utf8.ValidString(k) {
		return false
	}

	if strings.HasPrefix(k, "./") || strings.Contains(k, "/./") || strings.HasSuffix(k, "/.") {
		return false
	}

	for _, r := range k {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// StorageKey derives the storage key for an object. The owner and id
// prefixes namespace every object per owner and per upload.
func StorageKey(ownerID, id, displayName string) string {
	return ownerID + "/" + id + "/" + displayName
}

// PublicURL joins base and key, percent-encoding each key segment.
func PublicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// IsUsableReference reports whether ref can be handed to an external
// caller as is: an http(s) URL or a same-origin absolute path, without a
// fragment marker or an unresolved {placeholder}.
func IsUsableReference(ref string) bool {
	if ref == "" || strings.ContainsAny(ref, "#{}") {
		return false
	}

	if strings.HasPrefix(ref, "/") {
		return !strings.HasPrefix(ref, "//")
	}

	u, err := url.Parse(ref)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NewRecordID returns a fresh record id with 128 bits of randomness.
func NewRecordID() string {
	return "img_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewOwnerID returns a fresh owner id and a matching username.
func NewOwnerID() (id, username string) {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	username = "user_" + hex.EncodeToString(b)
	return "u_" + username, username
}

// callContext bounds a single backend call by timeout.
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// mutationContext detaches a store mutation from caller cancellation so a
// disconnect cannot abandon it half way. The timeout still applies.
func mutationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return callContext(context.WithoutCancel(ctx), timeout)
}
