package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/identity"
	"github.com/sagarc03/imghost/metrics"
)

// Service is the imghost operation surface the handlers call.
type Service interface {
	Initiate(ctx context.Context, ownerID, filename, contentType string) (imghost.Handle, error)
	Finalize(ctx context.Context, ownerID string, req imghost.FinalizeRequest) (imghost.FinalizeResult, error)
	List(ctx context.Context, ownerID string, limit int) ([]imghost.Record, error)
	Delete(ctx context.Context, id, requesterID string) error
	DownloadURL(ctx context.Context, id string) (string, error)
	RegisterOwner(ctx context.Context) (imghost.Owner, error)
	Ping(ctx context.Context) error
}

// KeyIssuer issues API keys and resolves them back to owners.
type KeyIssuer interface {
	IdentityResolver
	Issue(ownerID string) (string, error)
}

// ObjectStore is the local object store served under /objects.
type ObjectStore interface {
	Open(ctx context.Context, key string) (*os.File, error)
	Write(ctx context.Context, key string, content io.Reader) (int64, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	CORS CORSConfig
	// DevKeys exposes POST /api/v1/dev/keys, which creates an owner and
	// returns a key for it without any other credential.
	DevKeys bool
	// DefaultListLimit and MaxListLimit bound ?limit on the gallery route.
	DefaultListLimit int
	MaxListLimit     int
	// MaxBodyBytes caps JSON bodies. Zero means 1 MiB.
	MaxBodyBytes int64
	// MaxUploadBytes caps object uploads through /objects. Zero means no limit.
	MaxUploadBytes int64

	// Objects, when set, mounts /objects/* backed by a local store.
	Objects ObjectStore
	// ObjectVerifier checks presigned /objects requests.
	ObjectVerifier RequestVerifier
	// PublicObjectReads lets unsigned GETs through on /objects.
	PublicObjectReads bool

	Metrics *metrics.Metrics
}

// Handler provides HTTP handlers for the image broker.
type Handler struct {
	config   HandlerConfig
	service  Service
	keys     KeyIssuer
	validate *validator.Validate
}

// NewHandler creates a new Handler with the given configuration, service
// and key issuer.
func NewHandler(config *HandlerConfig, service Service, keys KeyIssuer) *Handler {
	cfg := *config
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = 50
	}
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = 200
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	return &Handler{
		config:   cfg,
		service:  service,
		keys:     keys,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Router returns an http.Handler with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if h.config.Metrics != nil {
		r.Use(h.config.Metrics.Middleware)
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(writeNotFound)
	r.MethodNotAllowed(writeMethodNotAllowed)

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	if h.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.config.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/image/{id}", h.handleDownload)

		if h.config.DevKeys {
			r.Post("/dev/keys", h.handleIssueKey)
		}

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.keys))
			r.Post("/upload/request", h.handleUploadRequest)
			r.Post("/upload/complete", h.handleUploadComplete)
			r.Get("/me/images", h.handleListImages)
			r.Delete("/image/{id}", h.handleDelete)
		})
	})

	if h.config.Objects != nil && h.config.ObjectVerifier != nil {
		r.Group(func(r chi.Router) {
			r.Use(SignatureMiddleware(h.config.ObjectVerifier, h.allowUnsignedRead))
			r.Get("/objects/*", h.handleObjectGet)
			r.Head("/objects/*", h.handleObjectGet)
			r.Put("/objects/*", h.handleObjectPut)
		})
	}

	return r
}

func (h *Handler) observe(operation string, err error) {
	h.config.Metrics.ObserveOperation(operation, errorCode(err))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		HandleError(w, fmt.Errorf("ready: %w: %w", imghost.ErrStoreUnavailable, err))
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// decodeBody reads a JSON body into dst and validates its struct tags.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: missing or invalid fields: %s", ErrInvalidBody, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	return nil
}

func ownerFrom(r *http.Request) (string, error) {
	ownerID, ok := identity.OwnerFromContext(r.Context())
	if !ok {
		return "", ErrNoIdentity
	}
	return ownerID, nil
}

type uploadRequest struct {
	Filename string `json:"filename" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
}

func (h *Handler) handleUploadRequest(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFrom(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	var req uploadRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	handle, err := h.service.Initiate(r.Context(), ownerID, req.Filename, req.MimeType)
	h.observe("upload_request", err)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, handle)
}

// completeRequest accepts "iid" as an alias of "id" for older clients. Any
// owner field a client sends is ignored: the owner is the caller.
type completeRequest struct {
	ID       string `json:"id" validate:"required_without=IID"`
	IID      string `json:"iid"`
	Key      string `json:"key" validate:"required"`
	Filename string `json:"filename" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
}

func (h *Handler) handleUploadComplete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFrom(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	var req completeRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		HandleError(w, err)
		return
	}

	id := req.ID
	if id == "" {
		id = req.IID
	}

	result, err := h.service.Finalize(r.Context(), ownerID, imghost.FinalizeRequest{
		ID:          id,
		StorageKey:  req.Key,
		DisplayName: req.Filename,
		ContentType: req.MimeType,
	})
	h.observe("upload_complete", err)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, result)
}

type listResponse struct {
	Items []imghost.Record `json:"items"`
}

func (h *Handler) handleListImages(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFrom(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	limit := h.config.DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = max(1, min(h.config.MaxListLimit, parsed))
		}
	}

	items, err := h.service.List(r.Context(), ownerID, limit)
	h.observe("gallery", err)
	if err != nil {
		HandleError(w, err)
		return
	}

	if items == nil {
		items = []imghost.Record{}
	}
	_ = WriteJSON(w, http.StatusOK, listResponse{Items: items})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	target, err := h.service.DownloadURL(r.Context(), id)
	h.observe("download", err)
	if err != nil {
		HandleError(w, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFrom(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	id := chi.URLParam(r, "id")

	err = h.service.Delete(r.Context(), id, ownerID)
	h.observe("delete", err)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

type issueKeyResponse struct {
	APIKey   string `json:"api_key"`
	UID      string `json:"uid"`
	Username string `json:"username"`
}

func (h *Handler) handleIssueKey(w http.ResponseWriter, r *http.Request) {
	owner, err := h.service.RegisterOwner(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	key, err := h.keys.Issue(owner.ID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, issueKeyResponse{APIKey: key, UID: owner.ID, Username: owner.Username})
}

func (h *Handler) allowUnsignedRead(r *http.Request) bool {
	return h.config.PublicObjectReads && (r.Method == http.MethodGet || r.Method == http.MethodHead)
}

func objectKey(r *http.Request) (string, bool) {
	key := chi.URLParam(r, "*")
	return key, imghost.IsValidKey(key)
}

func (h *Handler) handleObjectGet(w http.ResponseWriter, r *http.Request) {
	key, ok := objectKey(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	f, err := h.config.Objects.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, imghost.ErrObjectNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Object not found")
			return
		}
		HandleError(w, err)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		HandleError(w, err)
		return
	}

	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeContent(w, r, key, info.ModTime(), f)
	if h.config.Metrics != nil && r.Method == http.MethodGet {
		h.config.Metrics.BytesDownloaded.Add(float64(info.Size()))
	}
}

func (h *Handler) handleObjectPut(w http.ResponseWriter, r *http.Request) {
	key, ok := objectKey(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	body := r.Body
	if h.config.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	}

	written, err := h.config.Objects.Write(r.Context(), key, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Object exceeds the upload limit")
			return
		}
		HandleError(w, err)
		return
	}

	if h.config.Metrics != nil {
		h.config.Metrics.BytesUploaded.Add(float64(written))
	}

	w.WriteHeader(http.StatusOK)
}
