package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sarthakastic/storefront/pkg/httputil"
)

var panicsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Handler panics turned into 500 responses.",
	},
	[]string{"surface"},
)

// Recovery turns a handler panic into a logged 500 INTERNAL_ERROR. If the
// handler already started its response only the log line is written.
// http.ErrAbortHandler is passed on so net/http drops the connection.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				v := recover()
				switch v {
				case nil:
					return
				case http.ErrAbortHandler:
					panic(v)
				}

				panicsTotal.WithLabelValues(Surface(r.URL.Path)).Inc()
				l.ErrorContext(r.Context(), "handler panicked",
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				if ww.Status() != 0 {
					return
				}
				httputil.WriteProblem(ww, r, http.StatusInternalServerError, httputil.CodeInternal, "an internal error occurred")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
