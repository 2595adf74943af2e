// Package apperr defines the error taxonomy shared across the engine.
// Handlers classify errors with errors.Is; packages wrap these sentinels
// with context via fmt.Errorf("...: %w", ...).
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrValidation marks bad or missing caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown identity or session.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate marks an enrollment for an already-enrolled id
	// without the replace flag.
	ErrDuplicate = errors.New("duplicate id")
	// ErrInvalidInput marks an unprocessable image or face crop.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTimeout marks a bounded operation exceeding its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrUnavailable marks a backing store failure. Fatal for the
	// request, never for the process.
	ErrUnavailable = errors.New("store unavailable")
)

// HTTPStatus maps an error to its response code. Unclassified errors
// are internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
