package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exp
}

func tracedRouter(pattern string, status int) http.Handler {
	r := chi.NewRouter()
	r.Use(Tracing("storefront"))
	r.Get(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func attrs(span tracetest.SpanStub) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(span.Attributes))
	for _, kv := range span.Attributes {
		out[kv.Key] = kv.Value
	}
	return out
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTracing_NamesSpanByRoute(t *testing.T) {
	exp := recordSpans(t)

	serve(tracedRouter("/product/{id}", http.StatusOK), httptest.NewRequest(http.MethodGet, "/product/7", nil))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /product/{id}", spans[0].Name)
	a := attrs(spans[0])
	assert.Equal(t, "/product/{id}", a["http.route"].AsString())
	assert.Equal(t, SurfacePage, a["storefront.surface"].AsString())
	assert.Equal(t, int64(200), a["http.status_code"].AsInt64())
}

func TestTracing_StatusHandling(t *testing.T) {
	tests := []struct {
		status int
		failed bool
	}{
		{http.StatusNotFound, false},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			exp := recordSpans(t)
			serve(tracedRouter("/api/v1/products/{id}", tt.status), httptest.NewRequest(http.MethodGet, "/api/v1/products/99", nil))

			spans := exp.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, int64(tt.status), attrs(spans[0])["http.status_code"].AsInt64())
			assert.Equal(t, SurfaceAPI, attrs(spans[0])["storefront.surface"].AsString())
			assert.Equal(t, tt.failed, spans[0].Status.Code == codes.Error)
		})
	}
}

func TestTracing_ContinuesInboundTrace(t *testing.T) {
	exp := recordSpans(t)

	req := httptest.NewRequest(http.MethodGet, "/favourites", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := serve(tracedRouter("/favourites", http.StatusOK), req)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
	assert.NotEmpty(t, rec.Header().Get("traceparent"))
}

func TestTracing_SkipsOpsEndpoints(t *testing.T) {
	exp := recordSpans(t)

	for _, path := range []string{"/metrics", "/health/ready"} {
		rec := serve(tracedRouter(path, http.StatusOK), httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, exp.GetSpans())
}

func TestScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "http", scheme(req))
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https", scheme(req))
}
