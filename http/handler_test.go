package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/filesystem"
	imghosthttp "github.com/sagarc03/imghost/http"
	"github.com/sagarc03/imghost/identity"
	"github.com/sagarc03/imghost/keybackend"
	"github.com/sagarc03/imghost/metrics"
	"github.com/sagarc03/imghost/sigv4"
)

// MockService is a mock implementation of http.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Initiate(ctx context.Context, ownerID, filename, contentType string) (imghost.Handle, error) {
	args := m.Called(ctx, ownerID, filename, contentType)
	return args.Get(0).(imghost.Handle), args.Error(1)
}

func (m *MockService) Finalize(ctx context.Context, ownerID string, req imghost.FinalizeRequest) (imghost.FinalizeResult, error) {
	args := m.Called(ctx, ownerID, req)
	return args.Get(0).(imghost.FinalizeResult), args.Error(1)
}

func (m *MockService) List(ctx context.Context, ownerID string, limit int) ([]imghost.Record, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]imghost.Record), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, id, requesterID string) error {
	args := m.Called(ctx, id, requesterID)
	return args.Error(0)
}

func (m *MockService) DownloadURL(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockService) RegisterOwner(ctx context.Context) (imghost.Owner, error) {
	args := m.Called(ctx)
	return args.Get(0).(imghost.Owner), args.Error(1)
}

func (m *MockService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newIssuer(t *testing.T) *identity.Issuer {
	t.Helper()
	issuer, err := identity.NewIssuer(testSecret, 0)
	require.NoError(t, err)
	return issuer
}

func newHandler(t *testing.T, cfg imghosthttp.HandlerConfig) (http.Handler, *MockService, string) {
	t.Helper()

	issuer := newIssuer(t)
	key, err := issuer.Issue("u1")
	require.NoError(t, err)

	service := new(MockService)
	return imghosthttp.NewHandler(&cfg, service, issuer).Router(), service, key
}

func do(h http.Handler, method, target, key, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) imghosthttp.ErrorBody {
	t.Helper()
	var resp imghosthttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestHandler_Health(t *testing.T) {
	h, _, _ := newHandler(t, imghosthttp.HandlerConfig{})

	rec := do(h, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandler_Ready(t *testing.T) {
	h, service, _ := newHandler(t, imghosthttp.HandlerConfig{})

	service.On("Ping", mock.Anything).Return(nil).Once()
	rec := do(h, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	service.On("Ping", mock.Anything).Return(errors.New("dial tcp: connection refused")).Once()
	rec = do(h, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "store_unavailable", decodeError(t, rec).Code)
}

func TestHandler_AuthRequired(t *testing.T) {
	h, service, _ := newHandler(t, imghosthttp.HandlerConfig{})

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/upload/request", `{"filename":"a.png","mime_type":"image/png"}`},
		{http.MethodPost, "/api/v1/upload/complete", `{"id":"img_1","key":"u1/img_1/a.png","filename":"a.png","mime_type":"image/png"}`},
		{http.MethodGet, "/api/v1/me/images", ""},
		{http.MethodDelete, "/api/v1/image/img_1", ""},
	}

	for _, route := range routes {
		for _, key := range []string{"", "garbage"} {
			t.Run(route.method+" "+route.path+" key="+key, func(t *testing.T) {
				rec := do(h, route.method, route.path, key, route.body)

				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Equal(t, "auth", decodeError(t, rec).Code)
			})
		}
	}

	service.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	service.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything)
	service.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	service.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_BearerToken(t *testing.T) {
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{})

	service.On("List", mock.Anything, "u1", 50).Return([]imghost.Record{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/images", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestHandler_UploadRequest(t *testing.T) {
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{})

	handle := imghost.Handle{
		ID:          "img_1",
		StorageKey:  "u1/img_1/cat.png",
		DisplayName: "cat.png",
		UploadURL:   "https://s3.example.com/upload?sig=x",
	}
	service.On("Initiate", mock.Anything, "u1", "Cat.PNG", "image/png").Return(handle, nil)

	rec := do(h, http.MethodPost, "/api/v1/upload/request", key, `{"filename":"Cat.PNG","mime_type":"image/png"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"img_1","key":"u1/img_1/cat.png","filename":"cat.png","upload_url":"https://s3.example.com/upload?sig=x"}`, rec.Body.String())
	service.AssertExpectations(t)
}

func TestHandler_UploadRequest_Invalid(t *testing.T) {
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing mime type", body: `{"filename":"a.png"}`},
		{name: "missing filename", body: `{"mime_type":"image/png"}`},
		{name: "empty object", body: `{}`},
		{name: "not json", body: `filename=a.png`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/v1/upload/request", key, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "validation", decodeError(t, rec).Code)
		})
	}

	service.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_UploadRequest_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "validation", err: fmt.Errorf("initiate: %w: bad type", imghost.ErrValidation), wantStatus: http.StatusBadRequest, wantCode: "validation"},
		{name: "unavailable", err: fmt.Errorf("initiate: %w", imghost.ErrStoreUnavailable), wantStatus: http.StatusServiceUnavailable, wantCode: "store_unavailable"},
		{name: "access denied", err: fmt.Errorf("initiate: %w", imghost.ErrAccessDenied), wantStatus: http.StatusInternalServerError, wantCode: "storage_error"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, service, key := newHandler(t, imghosthttp.HandlerConfig{})
			service.On("Initiate", mock.Anything, "u1", "a.png", "image/png").Return(imghost.Handle{}, tt.err)

			rec := do(h, http.MethodPost, "/api/v1/upload/request", key, `{"filename":"a.png","mime_type":"image/png"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestHandler_UploadComplete(t *testing.T) {
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{})

	want := imghost.FinalizeRequest{ID: "img_1", StorageKey: "u1/img_1/a.png", DisplayName: "a.png", ContentType: "image/png"}
	service.On("Finalize", mock.Anything, "u1", want).
		Return(imghost.FinalizeResult{ID: "img_1", Reference: "https://cdn.example.com/u1/img_1/a.png"}, nil)

	// owner_id in the body is ignored; the owner comes from the key.
	rec := do(h, http.MethodPost, "/api/v1/upload/complete", key,
		`{"id":"img_1","key":"u1/img_1/a.png","filename":"a.png","mime_type":"image/png","owner_id":"u_evil"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"img_1","url":"https://cdn.example.com/u1/img_1/a.png"}`, rec.Body.String())
	service.AssertExpectations(t)
}

func TestHandler_UploadComplete_IIDAlias(t *testing.T) {
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{})

	service.On("Finalize", mock.Anything, "u1", mock.MatchedBy(func(req imghost.FinalizeRequest) bool {
		return req.ID == "img_9"
	})).Return(imghost.FinalizeResult{ID: "img_9"}, nil)

	rec := do(h, http.MethodPost, "/api/v1/upload/complete", key,
		`{"iid":"img_9","key":"u1/img_9/a.png","filename":"a.png","mime_type":"image/png"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	service.AssertExpectations(t)
}

func TestHandler_UploadComplete_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing id",
			body:       `{"key":"u1/img_1/a.png","filename":"a.png","mime_type":"image/png"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "missing key",
			body:       `{"id":"img_1","filename":"a.png","mime_type":"image/png"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "forbidden",
			body:       `{"id":"img_1","key":"u1/img_1/a.png","filename":"a.png","mime_type":"image/png"}`,
			err:        fmt.Errorf("finalize img_1: %w", imghost.ErrForbidden),
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
		},
		{
			name:       "already finalized",
			body:       `{"id":"img_1","key":"u1/img_1/a.png","filename":"a.png","mime_type":"image/png"}`,
			err:        fmt.Errorf("finalize img_1: %w", imghost.ErrAlreadyFinalized),
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "index unavailable",
			body:       `{"id":"img_1","key":"u1/img_1/a.png","filename":"a.png","mime_type":"image/png"}`,
			err:        fmt.Errorf("finalize img_1: %w", imghost.ErrStoreUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "store_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, service, key := newHandler(t, imghosthttp.HandlerConfig{})
			service.On("Finalize", mock.Anything, "u1", mock.Anything).Return(imghost.FinalizeResult{}, tt.err)

			rec := do(h, http.MethodPost, "/api/v1/upload/complete", key, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
			if tt.err == nil {
				service.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandler_ListImages_Limit(t *testing.T) {
	tests := []struct {
		query     string
		wantLimit int
	}{
		{query: "", wantLimit: 50},
		{query: "?limit=10", wantLimit: 10},
		{query: "?limit=500", wantLimit: 200},
		{query: "?limit=0", wantLimit: 1},
		{query: "?limit=-3", wantLimit: 1},
		{query: "?limit=abc", wantLimit: 50},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h, service, key := newHandler(t, imghosthttp.HandlerConfig{})
			service.On("List", mock.Anything, "u1", tt.wantLimit).Return([]imghost.Record{}, nil)

			rec := do(h, http.MethodGet, "/api/v1/me/images"+tt.query, key, "")

			assert.Equal(t, http.StatusOK, rec.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestHandler_ListImages(t *testing.T) {
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{})

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	service.On("List", mock.Anything, "u1", 50).Return([]imghost.Record{{
		ID:          "img_1",
		OwnerID:     "u1",
		StorageKey:  "u1/img_1/a.png",
		Reference:   "/api/v1/image/img_1",
		DisplayName: "a.png",
		ContentType: "image/png",
		Visibility:  imghost.VisibilityPrivate,
		CreatedAt:   created,
	}}, nil)

	rec := do(h, http.MethodGet, "/api/v1/me/images", key, "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []imghost.Record `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "/api/v1/image/img_1", resp.Items[0].Reference)
	assert.Equal(t, created, resp.Items[0].CreatedAt)
}

func TestHandler_ListImages_NilBecomesEmpty(t *testing.T) {
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{})
	service.On("List", mock.Anything, "u1", 50).Return(nil, nil)

	rec := do(h, http.MethodGet, "/api/v1/me/images", key, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestHandler_Download(t *testing.T) {
	h, service, _ := newHandler(t, imghosthttp.HandlerConfig{})

	service.On("DownloadURL", mock.Anything, "img_1").Return("https://s3.example.com/u1/img_1/a.png?sig=x", nil)
	service.On("DownloadURL", mock.Anything, "img_gone").Return("", fmt.Errorf("download url img_gone: %w", imghost.ErrNotFound))
	service.On("DownloadURL", mock.Anything, "img_bad").Return("", fmt.Errorf("download url img_bad: %w", imghost.ErrCorruptRecord))

	rec := do(h, http.MethodGet, "/api/v1/image/img_1", "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://s3.example.com/u1/img_1/a.png?sig=x", rec.Header().Get("Location"))

	rec = do(h, http.MethodGet, "/api/v1/image/img_gone", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)

	rec = do(h, http.MethodGet, "/api/v1/image/img_bad", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "invalid_record", decodeError(t, rec).Code)
}

func TestHandler_Delete(t *testing.T) {
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{})
	service.On("Delete", mock.Anything, "img_1", "u1").Return(nil)

	rec := do(h, http.MethodDelete, "/api/v1/image/img_1", key, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"deleted","id":"img_1"}`, rec.Body.String())
	service.AssertExpectations(t)
}

func TestHandler_Delete_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "forbidden", err: imghost.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "not found", err: imghost.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "corrupt", err: imghost.ErrCorruptRecord, wantStatus: http.StatusInternalServerError, wantCode: "invalid_record"},
		{name: "storage", err: errors.Join(imghost.ErrStore, imghost.ErrAccessDenied), wantStatus: http.StatusInternalServerError, wantCode: "storage_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, service, key := newHandler(t, imghosthttp.HandlerConfig{})
			service.On("Delete", mock.Anything, "img_1", "u1").Return(fmt.Errorf("delete img_1: %w", tt.err))

			rec := do(h, http.MethodDelete, "/api/v1/image/img_1", key, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestHandler_DevKeys(t *testing.T) {
	issuer := newIssuer(t)
	service := new(MockService)
	h := imghosthttp.NewHandler(&imghosthttp.HandlerConfig{DevKeys: true}, service, issuer).Router()

	service.On("RegisterOwner", mock.Anything).
		Return(imghost.Owner{ID: "u_user_0a0b0c0d", Username: "user_0a0b0c0d"}, nil)

	rec := do(h, http.MethodPost, "/api/v1/dev/keys", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		APIKey   string `json:"api_key"`
		UID      string `json:"uid"`
		Username string `json:"username"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "u_user_0a0b0c0d", resp.UID)
	assert.Equal(t, "user_0a0b0c0d", resp.Username)

	owner, err := issuer.Resolve(resp.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "u_user_0a0b0c0d", owner)
}

func TestHandler_DevKeys_Disabled(t *testing.T) {
	h, service, _ := newHandler(t, imghosthttp.HandlerConfig{})

	rec := do(h, http.MethodPost, "/api/v1/dev/keys", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	service.AssertNotCalled(t, "RegisterOwner", mock.Anything)
}

func TestHandler_NotFoundIsJSON(t *testing.T) {
	h, _, _ := newHandler(t, imghosthttp.HandlerConfig{})

	rec := do(h, http.MethodGet, "/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandler_CORS_Enabled_Preflight(t *testing.T) {
	h, _, _ := newHandler(t, imghosthttp.HandlerConfig{CORS: imghosthttp.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"X-API-Key", "Content-Type"},
		MaxAge:         300,
	}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/me/images", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestHandler_CORS_Disabled(t *testing.T) {
	h, _, _ := newHandler(t, imghosthttp.HandlerConfig{})

	rec := do(h, http.MethodGet, "/health", "", "")

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_Metrics(t *testing.T) {
	m := metrics.New(nil)
	h, service, key := newHandler(t, imghosthttp.HandlerConfig{Metrics: m})
	service.On("Delete", mock.Anything, "img_1", "u1").Return(imghost.ErrForbidden)

	do(h, http.MethodDelete, "/api/v1/image/img_1", key, "")

	rec := do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `imghost_operations_total{operation="delete",outcome="forbidden"} 1`)
	assert.Contains(t, body, `imghost_http_requests_total{method="DELETE",route="/api/v1/image/{id}",status="403"} 1`)
}

func newObjectHandler(t *testing.T, publicReads bool) (http.Handler, *filesystem.Store) {
	t.Helper()

	root, err := os.OpenRoot(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	presigner := sigv4.NewPresigner("us-east-1", "s3", "AKIATEST", "testsecret")
	store, err := filesystem.NewStore(root, "http://localhost:5708", presigner)
	require.NoError(t, err)

	verifier := sigv4.NewVerifier("us-east-1", "s3", keybackend.NewMapSecretStore(map[string]string{"AKIATEST": "testsecret"}))

	cfg := imghosthttp.HandlerConfig{
		Objects:           store,
		ObjectVerifier:    verifier,
		PublicObjectReads: publicReads,
		MaxUploadBytes:    16,
	}
	return imghosthttp.NewHandler(&cfg, new(MockService), newIssuer(t)).Router(), store
}

func TestHandler_Objects_PresignedRoundTrip(t *testing.T) {
	h, store := newObjectHandler(t, false)
	ctx := context.Background()

	uploadURL, err := store.IssueUploadURL(ctx, "u1/img_1/a.png", "image/png", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, uploadURL, strings.NewReader("png bytes"))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	downloadURL, err := store.IssueDownloadURL(ctx, "u1/img_1/a.png", time.Minute)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, downloadURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png bytes", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestHandler_Objects_Rejections(t *testing.T) {
	h, store := newObjectHandler(t, false)
	ctx := context.Background()

	t.Run("unsigned get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://localhost:5708/objects/u1/img_1/a.png", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		uploadURL, err := store.IssueUploadURL(ctx, "u1/img_1/a.png", "image/png", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPut, uploadURL, strings.NewReader("gif"))
		req.Header.Set("Content-Type", "image/gif")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("download url cannot upload", func(t *testing.T) {
		downloadURL, err := store.IssueDownloadURL(ctx, "u1/img_1/a.png", time.Minute)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, downloadURL, strings.NewReader("x")))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		uploadURL, err := store.IssueUploadURL(ctx, "u1/img_1/big.png", "image/png", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPut, uploadURL, strings.NewReader(strings.Repeat("x", 64)))
		req.Header.Set("Content-Type", "image/png")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("missing object", func(t *testing.T) {
		downloadURL, err := store.IssueDownloadURL(ctx, "u1/img_1/none.png", time.Minute)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, downloadURL, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_Objects_PublicReads(t *testing.T) {
	h, store := newObjectHandler(t, true)

	_, err := store.Write(context.Background(), "u1/img_1/a.png", strings.NewReader("hi"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, store.PublicReference("u1/img_1/a.png"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())

	// Writes still need a signature.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "http://localhost:5708/objects/u1/img_1/b.png", strings.NewReader("x")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
