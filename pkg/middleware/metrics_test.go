package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusRouter(service, pattern string, code int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(service))
	r.Get(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
	return r
}

func histogramSamples(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, o.(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestSurface(t *testing.T) {
	tests := map[string]string{
		"/":                       SurfacePage,
		"/favourites":             SurfacePage,
		"/product/{id}":           SurfacePage,
		"/api/v1/filters":         SurfaceAPI,
		"/api/v1/favourites/{id}": SurfaceAPI,
		"/health/live":            SurfaceOps,
		"/metrics":                SurfaceOps,
		"/debug/pprof/*":          SurfaceOps,
		"unknown":                 SurfacePage,
	}
	for route, want := range tests {
		assert.Equal(t, want, Surface(route), route)
	}
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "2xx", statusClass(http.StatusAccepted))
	assert.Equal(t, "4xx", statusClass(http.StatusNotFound))
	assert.Equal(t, "5xx", statusClass(http.StatusBadGateway))
	assert.Equal(t, "unknown", statusClass(42))
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	r := statusRouter("pattern-svc", "/product/{id}", http.StatusOK)
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/product/"+id, nil))
	}

	c := requestsTotal.WithLabelValues("pattern-svc", SurfacePage, http.MethodGet, "/product/{id}", "2xx")
	assert.Equal(t, float64(3), testutil.ToFloat64(c))
	assert.Equal(t, uint64(3), histogramSamples(t,
		requestSeconds.WithLabelValues("pattern-svc", SurfacePage, http.MethodGet, "/product/{id}")))
}

func TestPrometheusMetrics_StatusClasses(t *testing.T) {
	tests := []struct {
		code  int
		class string
	}{
		{http.StatusAccepted, "2xx"},
		{http.StatusUnsupportedMediaType, "4xx"},
		{http.StatusBadGateway, "5xx"},
	}
	for _, tc := range tests {
		t.Run(tc.class, func(t *testing.T) {
			svc := "class-" + tc.class
			r := statusRouter(svc, "/api/v1/filters", tc.code)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/filters", nil))
			require.Equal(t, tc.code, rr.Code)

			c := requestsTotal.WithLabelValues(svc, SurfaceAPI, http.MethodGet, "/api/v1/filters", tc.class)
			assert.Equal(t, float64(1), testutil.ToFloat64(c))
		})
	}
}

func TestPrometheusMetrics_ImplicitOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("implicit-svc"))
	r.Get("/favourites", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/favourites", nil))

	c := requestsTotal.WithLabelValues("implicit-svc", SurfacePage, http.MethodGet, "/favourites", "2xx")
	assert.Equal(t, float64(1), testutil.ToFloat64(c))
}

func TestPrometheusMetrics_InFlight(t *testing.T) {
	gauge := requestsInFlight.WithLabelValues("inflight-svc")
	var during float64

	r := chi.NewRouter()
	r.Use(PrometheusMetrics("inflight-svc"))
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(gauge)
		w.WriteHeader(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, float64(1), during)
	assert.Equal(t, float64(0), testutil.ToFloat64(gauge))
}

func TestPrometheusMetrics_OutsideRouter(t *testing.T) {
	h := PrometheusMetrics("bare-svc")(okHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))

	c := requestsTotal.WithLabelValues("bare-svc", SurfacePage, http.MethodGet, "unknown", "2xx")
	assert.Equal(t, float64(1), testutil.ToFloat64(c))
}
