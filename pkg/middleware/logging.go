package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/sarthakastic/storefront/pkg/logger"
)

// CorrelationIDHeader carries the request correlation ID in both directions.
const CorrelationIDHeader = "X-Correlation-ID"

const maxCorrelationIDLen = 128

// RequestLogging assigns the correlation ID and writes one access log line
// per request. Ops traffic (probes, scrapes) is logged at debug so it does
// not drown page and API lines.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := correlationID(r.Header.Get(CorrelationIDHeader))
			w.Header().Set(CorrelationIDHeader, id)
			r = r.WithContext(logger.WithCorrelationID(r.Context(), id))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			if route == "" {
				route = r.URL.Path
			}
			surface := Surface(route)

			l.Log(r.Context(), accessLevel(surface, status), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.String("surface", surface),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", id),
			)
		})
	}
}

// correlationID keeps an inbound ID made of visible ASCII and at most 128
// bytes long; anything else is replaced by a fresh UUID.
func correlationID(inbound string) string {
	if inbound == "" || len(inbound) > maxCorrelationIDLen {
		return uuid.NewString()
	}
	for i := 0; i < len(inbound); i++ {
		if c := inbound[i]; c <= ' ' || c > '~' {
			return uuid.NewString()
		}
	}
	return inbound
}

func accessLevel(surface string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case surface == SurfaceOps:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
