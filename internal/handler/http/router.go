package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sarthakastic/storefront/internal/service"
	"github.com/sarthakastic/storefront/internal/session"
	"github.com/sarthakastic/storefront/pkg/health"
	"github.com/sarthakastic/storefront/pkg/middleware"
)

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	ServiceName    string
	Service        *service.StorefrontService
	Sessions       *session.Manager
	Health         *health.Handler
	Logger         *slog.Logger
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
	Cookie         SessionCookieConfig
	MetricsCIDRs   []string
	PprofCIDRs     []string
}

// NewRouter creates a chi router with the page, API and operational routes
// registered. Background work started for the router stops with ctx.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(cfg.Logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())

	// Metrics and pprof with IP allowlists.
	middleware.RegisterMetrics(r, cfg.MetricsCIDRs, cfg.Logger)
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	pages := NewPageHandler(cfg.Service, cfg.Logger)
	api := NewAPIHandler(cfg.Service, cfg.Logger)
	sessionCookie := SessionCookie(cfg.Sessions, cfg.Cookie)

	// UI pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(sessionCookie)

		r.Get("/", pages.Home)
		r.Get("/favourites", pages.Favourites)
		r.Get("/product/{id}", pages.ProductDetail)
	})

	// Session API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)
		r.Use(sessionCookie)

		r.Route("/filters", func(r chi.Router) {
			r.Get("/", api.GetFilters)
			r.Put("/", api.UpdateFilters)
			r.Delete("/", api.ResetFilters)
			r.Post("/search-input", api.PushSearchInput)
		})

		r.Route("/favourites", func(r chi.Router) {
			r.Get("/", api.ListFavourites)
			r.Put("/{id}", api.AddFavourite)
			r.Delete("/{id}", api.RemoveFavourite)
			r.Post("/{id}/toggle", api.ToggleFavourite)
		})

		r.Get("/theme", api.GetTheme)
		r.Post("/theme/toggle", api.ToggleTheme)

		r.Delete("/session", api.EndSession)
	})

	return r
}
