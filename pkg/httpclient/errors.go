package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/sarthakastic/storefront/pkg/errors"
)

const maxErrorBody = 1 << 20

// ParseResponseError consumes and closes the body of a non-2xx response and
// maps it onto an AppError named after upstream. A JSON message in the body
// is preferred, then the trimmed body text, then the status text.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Upstream(
			fmt.Sprintf("%s returned status %d", upstream, resp.StatusCode),
			fmt.Errorf("read body: %w", err),
		)
	}
	code, message := errorMessage(raw)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return mapStatus(resp.StatusCode, code, message, upstream)
}

// errorMessage understands {"error":{"code","message"}} and
// {"status","message"} bodies and falls back to the body text.
func errorMessage(raw []byte) (code, message string) {
	var body struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != nil {
			return body.Error.Code, body.Error.Message
		}
		if body.Message != "" {
			return body.Status, body.Message
		}
	}
	return "", strings.TrimSpace(string(raw))
}

var statusErrors = map[int]func(string) *apperrors.AppError{
	http.StatusBadRequest:         apperrors.InvalidInput,
	http.StatusConflict:           apperrors.Conflict,
	http.StatusGone:               apperrors.Gone,
	http.StatusTooManyRequests:    apperrors.RateLimited,
	http.StatusServiceUnavailable: apperrors.ServiceUnavailable,
}

func mapStatus(status int, code, message, upstream string) error {
	qualified := upstream + ": " + message
	if status == http.StatusNotFound {
		return apperrors.NotFound(upstream+" resource", message)
	}
	if ctor, ok := statusErrors[status]; ok {
		return ctor(qualified)
	}
	if status >= http.StatusInternalServerError {
		return apperrors.Upstream(qualified, fmt.Errorf("status %d (%s)", status, code))
	}
	// Any other 4xx means this service called the upstream wrongly, which is
	// a bad gateway from the client's point of view.
	e := apperrors.Upstream(qualified, nil)
	if code != "" {
		e.Code = code
	}
	return e
}
