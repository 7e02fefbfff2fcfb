package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Surfaces a route can belong to.
const (
	SurfacePage = "page"
	SurfaceAPI  = "api"
	SurfaceOps  = "ops"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by surface, route and status class.",
		},
		[]string{"service", "surface", "method", "route", "status"},
	)

	requestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time to serve an HTTP request, page waits included.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 2.5, 5, 10},
		},
		[]string{"service", "surface", "method", "route"},
	)

	requestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		},
		[]string{"service"},
	)
)

// Surface classifies a route pattern as an API call, an ops endpoint or a
// rendered page.
func Surface(route string) string {
	switch {
	case strings.HasPrefix(route, "/api/"):
		return SurfaceAPI
	case route == "/metrics", strings.HasPrefix(route, "/health"), strings.HasPrefix(route, "/debug/"):
		return SurfaceOps
	default:
		return SurfacePage
	}
}

// statusClass collapses a status code into "2xx", "4xx" and so on.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// PrometheusMetrics records request counts and latency labelled by the chi
// route pattern, so /product/{id} is a single series.
func PrometheusMetrics(serviceName string) func(next http.Handler) http.Handler {
	inFlight := requestsInFlight.WithLabelValues(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			route := routePattern(r)
			if route == "" {
				route = "unknown"
			}
			surface := Surface(route)

			requestsTotal.WithLabelValues(serviceName, surface, r.Method, route, statusClass(code)).Inc()
			requestSeconds.WithLabelValues(serviceName, surface, r.Method, route).Observe(elapsed.Seconds())
		})
	}
}
