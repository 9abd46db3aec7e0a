// Package apperror defines the closed set of error kinds the application
// can produce, so callers match typed variants with errors.Is instead of
// string-comparing messages.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors — the error "kinds" of the application.
//
// Services wrap these inside an *AppError. The HTTP layer walks the chain
// with errors.Is to pick a status code, and reads the AppError for the
// human-readable message.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrDuplicate    = errors.New("duplicate resource")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// AppError carries a sentinel kind plus a message safe to show to clients.
type AppError struct {
	Err     error  // one of the sentinel errors above
	Message string // human-readable, client-facing message
	Field   string // optional: the input field that caused the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound returns an AppError for a missing resource.
// HTTP handlers map this to 404 Not Found.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed returns an AppError for malformed input.
// HTTP handlers map this to 400 Bad Request.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate returns an AppError for a uniqueness violation, e.g. an email
// or username that is already taken. HTTP handlers map this to 409 Conflict.
func Duplicate(field, message string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: message,
		Field:   field,
	}
}

// Unauthorized returns an AppError indicating missing or bad credentials.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
