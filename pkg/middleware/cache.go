package middleware

import (
	"net/http"
)

// NoStore marks GET and HEAD responses as uncacheable. Session-scoped views
// must never be served from a shared cache.
func NoStore(next http.Handler) http.Handler {
	return CacheControl("no-store")(next)
}

// CacheControl returns a middleware that sets the Cache-Control header on GET
// and HEAD responses.
func CacheControl(value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
