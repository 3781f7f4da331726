package server

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionNotFound indicates the session id is unknown or expired
type ErrSessionNotFound struct {
	ID string
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

// ErrBadgeNotFound indicates a badge id outside the catalog
type ErrBadgeNotFound struct {
	ID string
}

func (e *ErrBadgeNotFound) Error() string {
	return fmt.Sprintf("badge not found: %s", e.ID)
}

// ErrTooManySessions indicates the session limit was reached
type ErrTooManySessions struct {
	Limit int
}

func (e *ErrTooManySessions) Error() string {
	return fmt.Sprintf("too many active sessions (limit %d)", e.Limit)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *ErrSessionNotFound
		badge      *ErrBadgeNotFound
		tooMany    *ErrTooManySessions
		validation *ErrValidation
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &badge):
		return http.StatusNotFound
	case errors.As(err, &tooMany):
		return http.StatusServiceUnavailable
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
