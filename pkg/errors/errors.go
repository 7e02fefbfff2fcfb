// Package errors defines the storefront's error vocabulary and its mapping
// onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrGone           = errors.New("gone")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrUpstream       = errors.New("upstream failure")
	ErrRateLimited    = errors.New("rate limited")
)

// kind ties a sentinel to its public code and status.
type kind struct {
	sentinel error
	code     string
	status   int
}

var (
	kindNotFound    = kind{ErrNotFound, "NOT_FOUND", http.StatusNotFound}
	kindInvalid     = kind{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest}
	kindConflict    = kind{ErrConflict, "CONFLICT", http.StatusConflict}
	kindGone        = kind{ErrGone, "GONE", http.StatusGone}
	kindRateLimited = kind{ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests}
	kindUpstream    = kind{ErrUpstream, "UPSTREAM_ERROR", http.StatusBadGateway}
	kindUnavailable = kind{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable}
	kindInternal    = kind{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError}

	kinds = []kind{kindNotFound, kindInvalid, kindConflict, kindGone, kindRateLimited, kindUpstream, kindUnavailable}
)

// AppError is an error with a client-facing code and message. Err holds the
// cause and is never shown to clients.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(k kind, message string, cause error) *AppError {
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: cause}
}

// NotFound reports a missing resource, e.g. NotFound("product", "42").
func NotFound(resource, id string) *AppError {
	return newAppError(kindNotFound, fmt.Sprintf("%s with id %s not found", resource, id), ErrNotFound)
}

func InvalidInput(message string) *AppError {
	return newAppError(kindInvalid, message, ErrInvalidInput)
}

func Conflict(message string) *AppError {
	return newAppError(kindConflict, message, ErrConflict)
}

func Gone(message string) *AppError {
	return newAppError(kindGone, message, ErrGone)
}

func ServiceUnavailable(message string) *AppError {
	return newAppError(kindUnavailable, message, ErrServiceUnavail)
}

// Upstream reports a failed call to the catalog or another remote
// dependency. Both ErrUpstream and cause match errors.Is.
func Upstream(message string, cause error) *AppError {
	return newAppError(kindUpstream, message, errors.Join(ErrUpstream, cause))
}

func RateLimited(message string) *AppError {
	return newAppError(kindRateLimited, message, ErrRateLimited)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return newAppError(kindInternal, "an internal error occurred", err)
}

// HTTPStatus picks the status for err: an AppError's own status, then the
// first matching sentinel, then 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}
