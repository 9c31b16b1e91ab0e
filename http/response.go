package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/imghost"
)

// ErrorBody is the payload of an error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorBody{Code: errCode, Message: message},
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// classify maps an error onto a status, an error code and a client-facing
// message. Wrapped details stay in the server log.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, imghost.ErrValidation):
		return http.StatusBadRequest, "validation", "Invalid request"
	case errors.Is(err, imghost.ErrUnauthorized):
		return http.StatusUnauthorized, "auth", "invalid api key"
	case errors.Is(err, imghost.ErrForbidden):
		return http.StatusForbidden, "forbidden", "Not allowed"
	case errors.Is(err, imghost.ErrNotFound):
		return http.StatusNotFound, "not_found", "Image not found"
	case errors.Is(err, imghost.ErrAlreadyFinalized):
		return http.StatusConflict, "conflict", "Upload already completed"
	case errors.Is(err, imghost.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable", "Storage temporarily unavailable"
	case errors.Is(err, imghost.ErrCorruptRecord):
		return http.StatusInternalServerError, "invalid_record", "Image record is corrupt"
	case errors.Is(err, imghost.ErrStore), errors.Is(err, imghost.ErrAccessDenied):
		return http.StatusInternalServerError, "storage_error", "Storage operation failed"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

// errorCode returns the code HandleError would write for err, or "ok".
func errorCode(err error) string {
	if err == nil {
		return "ok"
	}
	_, code, _ := classify(err)
	return code
}

// HandleError writes appropriate error response based on error type.
// Server-side failures are logged with the full error chain.
func HandleError(w http.ResponseWriter, err error) {
	status, code, message := classify(err)

	if status >= http.StatusInternalServerError {
		slog.Error("request error", "error", err, "code", code)
	} else {
		slog.Debug("request rejected", "error", err, "code", code)
	}

	// Validation messages are written by this server and safe to echo.
	if status == http.StatusBadRequest {
		message = err.Error()
	}

	WriteError(w, status, code, message)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
