// Package httputil writes the storefront's JSON envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/sarthakastic/storefront/pkg/errors"
	"github.com/sarthakastic/storefront/pkg/logger"
	"github.com/sarthakastic/storefront/pkg/validator"
)

// Error codes written by this package.
const (
	CodeInternal         = "INTERNAL_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeValidation       = "VALIDATION_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// Response wraps every JSON body: exactly one of Data or Error is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding errors are dropped
// since the header has already gone out.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteProblem writes an error envelope. The request ID is taken from r's
// correlation ID when r is non-nil.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	body := &ErrorResponse{Code: code, Message: message}
	if r != nil {
		body.RequestID = logger.CorrelationIDFromContext(r.Context())
	}
	WriteJSON(w, status, Response{Error: body})
}

// sentinel codes and public messages. An empty message means err.Error()
// is safe to show.
var sentinels = []struct {
	err     error
	code    string
	message string
}{
	{apperrors.ErrNotFound, CodeNotFound, "resource not found"},
	{apperrors.ErrConflict, CodeConflict, "resource conflict"},
	{apperrors.ErrInvalidInput, CodeInvalidInput, ""},
	{apperrors.ErrRateLimited, CodeRateLimited, "too many requests"},
	{apperrors.ErrUpstream, CodeUpstream, "upstream service failed"},
	{apperrors.ErrServiceUnavail, CodeUnavailable, "service unavailable"},
}

// describe maps err to the code and message shown to clients.
func describe(err error) (code, message string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			if s.message == "" {
				return s.code, err.Error()
			}
			return s.code, s.message
		}
	}
	return CodeInternal, "an internal error occurred"
}

// WriteError maps err onto an error envelope. Server-side failures are
// logged with the request-scoped logger, or fallback when the request
// carries none.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status := apperrors.HTTPStatus(err)
	code, message := describe(err)

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	WriteProblem(w, r, status, code, message)
}

// WriteValidationError answers 400. Validation failures carry per-field
// messages; decode failures carry the decoder's message.
func WriteValidationError(w http.ResponseWriter, err error) {
	body := &ErrorResponse{Code: CodeInvalidInput, Message: err.Error()}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		body = &ErrorResponse{
			Code:    CodeValidation,
			Message: "request validation failed",
			Fields:  valErr.Fields(),
		}
	}
	WriteJSON(w, http.StatusBadRequest, Response{Error: body})
}

// ParseID parses a positive product id. On failure it answers 400 and
// returns false.
func ParseID(w http.ResponseWriter, raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err == nil && id > 0 {
		return id, true
	}
	WriteProblem(w, nil, http.StatusBadRequest, CodeInvalidParameter, "invalid id: "+raw)
	return 0, false
}
