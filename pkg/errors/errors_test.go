package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := stderrors.New("row missing")
	err := &AppError{Code: "NOT_FOUND", Message: "order gone", Status: http.StatusNotFound, Err: cause}

	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "order gone")
	assert.Contains(t, err.Error(), "row missing")
	assert.Equal(t, cause, err.Unwrap())
}

func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
	}{
		{"not found", NotFound("order", "abc"), http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", InvalidInput("bad"), http.StatusBadRequest, "INVALID_INPUT"},
		{"unauthorized", Unauthorized("no token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, "FORBIDDEN"},
		{"conflict", Conflict("taken"), http.StatusConflict, "CONFLICT"},
		{"internal", Internal(stderrors.New("boom")), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNew_CustomCode(t *testing.T) {
	err := New("EMPTY_CART", "cart is empty", http.StatusBadRequest, ErrInvalidInput)

	assert.Equal(t, "EMPTY_CART", err.Code)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	assert.True(t, stderrors.Is(err, ErrInvalidInput))
}

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("load: %w", ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(fmt.Errorf("parse: %w", ErrInvalidInput)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(stderrors.New("opaque")))
}

func TestHTTPStatus_WrappedAppError(t *testing.T) {
	inner := Forbidden("admin only")
	wrapped := fmt.Errorf("update status: %w", inner)
	assert.Equal(t, http.StatusForbidden, HTTPStatus(wrapped))
}
