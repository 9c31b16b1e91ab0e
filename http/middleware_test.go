package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	imghosthttp "github.com/sagarc03/imghost/http"
	"github.com/sagarc03/imghost/identity"
	"github.com/sagarc03/imghost/keybackend"
	"github.com/sagarc03/imghost/sigv4"
)

func TestAuthMiddleware_SetsOwner(t *testing.T) {
	issuer := newIssuer(t)
	key, err := issuer.Issue("u42")
	assert.NoError(t, err)

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	wrapped := imghosthttp.AuthMiddleware(issuer)(handler)

	for _, set := range []func(*http.Request){
		func(r *http.Request) { r.Header.Set("X-API-Key", key) },
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+key) },
		func(r *http.Request) { r.Header.Set("Authorization", "bearer "+key) },
	} {
		seen = ""
		req := httptest.NewRequest("GET", "/", nil)
		set(req)
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u42", seen)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	issuer := newIssuer(t)
	key, err := issuer.Issue("u42")
	assert.NoError(t, err)

	// Handler that shouldn't be reached
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := imghosthttp.AuthMiddleware(issuer)(handler)

	for _, header := range [][2]string{
		{"", ""},
		{"X-API-Key", "   "},
		{"Authorization", "Basic " + key},
		{"Authorization", key},
		{"X-API-Key", key + "x"},
	} {
		req := httptest.NewRequest("GET", "/", nil)
		if header[0] != "" {
			req.Header.Set(header[0], header[1])
		}
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"auth"`)
	}
}

func newSignatureVerifier() *sigv4.Verifier {
	store := keybackend.NewMapSecretStore(map[string]string{
		"AKIATEST": "testsecret",
	})
	return sigv4.NewVerifier("us-east-1", "s3", store)
}

func TestSignatureMiddleware_NoSignature(t *testing.T) {
	// Handler that shouldn't be reached
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := imghosthttp.SignatureMiddleware(newSignatureVerifier(), nil)(handler)

	req := httptest.NewRequest("GET", "/objects/test.png", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "signature")
}

func TestSignatureMiddleware_InvalidSignature(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := imghosthttp.SignatureMiddleware(newSignatureVerifier(), func(*http.Request) bool { return true })(handler)

	// An attempted signature is always checked, even when unsigned reads are allowed.
	req := httptest.NewRequest("GET", "/objects/test.png?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Credential=WRONGKEY/20260112/us-east-1/s3/aws4_request&X-Amz-Date=20260112T070000Z&X-Amz-Expires=3600&X-Amz-SignedHeaders=host&X-Amz-Signature=invalid", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignatureMiddleware_AllowUnsigned(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	wrapped := imghosthttp.SignatureMiddleware(newSignatureVerifier(), func(r *http.Request) bool {
		return r.Method == http.MethodGet
	})(handler)

	req := httptest.NewRequest("GET", "/objects/test.png", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	req = httptest.NewRequest("PUT", "/objects/test.png", nil)
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
