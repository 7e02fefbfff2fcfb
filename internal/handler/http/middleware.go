package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sarthakastic/storefront/internal/session"
	"github.com/sarthakastic/storefront/internal/theme"
	"github.com/sarthakastic/storefront/pkg/httputil"
	"github.com/sarthakastic/storefront/pkg/middleware"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const sessionKey contextKey = "session"

// SessionCookieConfig configures the session cookie. TTL is how long the
// browser keeps the cookie; it outlives the server-side session so that a
// returning client gets its id, and its stored theme, back.
type SessionCookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// SessionCookie resolves the shopper's session from the cookie, creating
// one when the cookie is missing or stale, and stores it in the request
// context. A new session's theme is seeded from the color-scheme client hint.
func SessionCookie(sessions *session.Manager, cfg SessionCookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cfg.Name); err == nil {
				id = c.Value
			}

			hint := theme.FromHint(r.Header.Get(theme.HintHeader))
			sess, created, err := sessions.Get(r.Context(), id, hint)
			if err != nil {
				if errors.Is(err, session.ErrClosed) {
					httputil.WriteProblem(w, r, http.StatusServiceUnavailable, httputil.CodeUnavailable, "shutting down")
					return
				}
				httputil.WriteError(w, r, err, nil)
				return
			}

			w.Header().Set("Accept-CH", theme.HintHeader)
			w.Header().Add("Vary", theme.HintHeader)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Name,
					Value:    sess.ID(),
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			r = middleware.WithSessionLogger(r, sess.ID())
			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromContext returns the session stored by SessionCookie.
func sessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok && s != nil
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteProblem(w, r, http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
