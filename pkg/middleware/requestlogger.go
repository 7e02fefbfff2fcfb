package middleware

import (
	"log/slog"
	"net/http"

	"github.com/sarthakastic/storefront/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, carrying
// whichever of correlation_id, session_id, trace_id and span_id are known.
// Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, logger.WithContext(ctx, base))))
		})
	}
}

// WithSessionLogger records the resolved session on r and extends its
// request logger with session_id.
func WithSessionLogger(r *http.Request, sessionID string) *http.Request {
	ctx := logger.WithSessionID(r.Context(), sessionID)
	scoped := logger.FromContext(ctx).With(slog.String("session_id", sessionID))
	return r.WithContext(logger.NewContext(ctx, scoped))
}
