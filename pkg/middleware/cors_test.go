package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveCORS(cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/products", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	CORS(cfg)(okHandler()).ServeHTTP(rr, req)
	return rr
}

func preflight(cfg CORSConfig, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/favorites/3", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rr := httptest.NewRecorder()
	CORS(cfg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("preflight reached the handler")
	})).ServeHTTP(rr, req)
	return rr
}

func TestCORS_AllowOrigin(t *testing.T) {
	listed := []string{"https://shop.example/", "https://admin.shop.example"}
	tests := []struct {
		name        string
		cfg         CORSConfig
		origin      string
		allow       string
		credentials string
	}{
		{"wildcard", CORSConfig{AllowedOrigins: []string{"*"}}, "https://shop.example", "*", ""},
		{"wildcard echoes with credentials", CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}, "https://shop.example", "https://shop.example", "true"},
		{"wildcard without origin", CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}, "", "*", ""},
		{"listed with trailing slash", CORSConfig{AllowedOrigins: listed, AllowCredentials: true}, "https://shop.example", "https://shop.example", "true"},
		{"second listed", CORSConfig{AllowedOrigins: listed}, "https://admin.shop.example", "https://admin.shop.example", ""},
		{"unlisted", CORSConfig{AllowedOrigins: listed, AllowCredentials: true}, "https://evil.example", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveCORS(tt.cfg, http.MethodGet, tt.origin)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.allow, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.credentials, rr.Header().Get("Access-Control-Allow-Credentials"))
			if tt.allow != "" && tt.allow != "*" {
				assert.Equal(t, "Origin", rr.Header().Get("Vary"))
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	rr := preflight(DefaultCORSConfig(), "https://shop.example")

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Equal(t, "https://shop.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightDefaults(t *testing.T) {
	rr := preflight(CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: 60}, "https://shop.example")

	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Accept, Content-Type, X-Correlation-ID", rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "60", rr.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PlainOptionsReachesHandler(t *testing.T) {
	rr := serveCORS(DefaultCORSConfig(), http.MethodOptions, "https://shop.example")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_ExposedHeaders(t *testing.T) {
	rr := serveCORS(DefaultCORSConfig(), http.MethodGet, "https://shop.example")
	assert.Equal(t, CorrelationIDHeader, rr.Header().Get("Access-Control-Expose-Headers"))

	rr = serveCORS(CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "")
	assert.Empty(t, rr.Header().Get("Access-Control-Expose-Headers"))
}
