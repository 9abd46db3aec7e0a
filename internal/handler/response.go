// Package handler contains the HTTP layer: request parsing, response
// writing, and the mapping from domain errors to status codes. Handlers
// hold no business logic — they translate between HTTP and the services.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/shiori/internal/apperror"
)

// ErrorResponse is the standard error shape returned by every endpoint:
//
//	{"error": "not_found", "message": "user not found with id 42"}
//
// One shape for all status codes means the client parses errors one way.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response. Headers and status must go out before
// the body — once Encode writes, the headers are sealed.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends the standard
// error shape.
//
// The service layer returns apperror variants; this is the single place
// they become status codes. Anything that isn't an AppError is an
// unexpected failure: it gets logged by the caller and surfaces as an
// opaque 500 — internal details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrDuplicate):
			status = http.StatusConflict
			errorType = "duplicate"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
