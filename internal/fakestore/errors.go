package fakestore

import (
	"errors"
	"fmt"

	"github.com/sarthakastic/storefront/pkg/httpclient"
)

// Default rejection messages, shown when a failure carries no message of
// its own.
const (
	MsgListProducts   = "Error fetching products. Try again later."
	MsgGetProduct     = "Error fetching product. Try again later."
	MsgListCategories = "Error fetching product by category. Try again later."
)

// NetworkError is returned for every failed call to the catalog API:
// transport errors, non-2xx responses, undecodable bodies and an open
// circuit breaker. Message is safe to show to shoppers; Err keeps the cause.
type NetworkError struct {
	Op      string
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return e.Message
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func newNetworkError(op, fallback string, cause error) *NetworkError {
	msg := userMessage(cause)
	if msg == "" {
		msg = fallback
	}
	return &NetworkError{Op: op, Message: msg, Err: cause}
}

// responseError is a non-2xx, non-5xx response. err is the translated
// upstream error and keeps the upstream's own message for logs.
type responseError struct {
	status int
	err    error
}

func (e *responseError) Error() string {
	return statusMessage(e.status)
}

func (e *responseError) Unwrap() error {
	return e.err
}

func statusMessage(status int) string {
	return fmt.Sprintf("Request failed with status code %d", status)
}

// userMessage extracts a shopper-facing message from cause, or "" when the
// cause is an internal detail (dial errors, decode errors, breaker state).
func userMessage(cause error) string {
	var respErr *responseError
	if errors.As(cause, &respErr) {
		return respErr.Error()
	}
	var statusErr *httpclient.StatusError
	if errors.As(cause, &statusErr) {
		return statusMessage(statusErr.StatusCode)
	}
	return ""
}
