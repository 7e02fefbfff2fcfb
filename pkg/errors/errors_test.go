package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	bare := &AppError{Code: "NOT_FOUND", Message: "product not found"}
	assert.Equal(t, "NOT_FOUND: product not found", bare.Error())

	wrapped := &AppError{Code: "INTERNAL_ERROR", Message: "catalog unavailable", Err: fmt.Errorf("connection reset")}
	assert.Equal(t, "INTERNAL_ERROR: catalog unavailable: connection reset", wrapped.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("product", "42"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"invalid input", InvalidInput("id must be an integer"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"conflict", Conflict("already a favourite"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"gone", Gone("session expired"), "GONE", http.StatusGone, ErrGone},
		{"unavailable", ServiceUnavailable("catalog breaker open"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"upstream", Upstream("catalog request failed", nil), "UPSTREAM_ERROR", http.StatusBadGateway, ErrUpstream},
		{"rate limited", RateLimited("too many requests"), "RATE_LIMITED", http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	assert.Equal(t, "product with id 42 not found", NotFound("product", "42").Message)
}

func TestUpstream_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Upstream("catalog request failed", cause)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
}

func TestInternal_HidesCause(t *testing.T) {
	err := Internal(fmt.Errorf("segfault"))
	assert.Equal(t, "an internal error occurred", err.Message)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Contains(t, err.Error(), "segfault")
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	tests := map[error]int{
		ErrNotFound:                            http.StatusNotFound,
		ErrConflict:                            http.StatusConflict,
		ErrGone:                                http.StatusGone,
		ErrInvalidInput:                        http.StatusBadRequest,
		ErrRateLimited:                         http.StatusTooManyRequests,
		ErrUpstream:                            http.StatusBadGateway,
		ErrServiceUnavail:                      http.StatusServiceUnavailable,
		fmt.Errorf("load: %w", ErrNotFound):    http.StatusNotFound,
		errors.New("unknown"):                  http.StatusInternalServerError,
		fmt.Errorf("wrapped: %w", ErrInternal): http.StatusInternalServerError,
	}
	for err, want := range tests {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}
