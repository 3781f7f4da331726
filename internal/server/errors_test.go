package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrSessionNotFound(t *testing.T) {
	err := &ErrSessionNotFound{ID: "abc"}
	assert.Equal(t, "session not found: abc", err.Error())
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestErrBadgeNotFound(t *testing.T) {
	err := &ErrBadgeNotFound{ID: "unicorn"}
	assert.Equal(t, "badge not found: unicorn", err.Error())
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestErrTooManySessions(t *testing.T) {
	err := &ErrTooManySessions{Limit: 2}
	assert.Equal(t, "too many active sessions (limit 2)", err.Error())
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(err))
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "type", Message: "unknown event"}
	assert.Equal(t, "validation error: type - unknown event", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus_Wrapped(t *testing.T) {
	err := fmt.Errorf("lookup: %w", &ErrSessionNotFound{ID: "x"})
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestHTTPStatus_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
}
