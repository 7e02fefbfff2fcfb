package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sarthakastic/storefront/internal/service"
	"github.com/sarthakastic/storefront/pkg/httputil"
)

// PageHandler serves the view-models of the three storefront pages.
type PageHandler struct {
	service *service.StorefrontService
	logger  *slog.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(svc *service.StorefrontService, logger *slog.Logger) *PageHandler {
	return &PageHandler{service: svc, logger: logger}
}

// Home handles GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.service.Home(r.Context(), sess))
}

// Favourites handles GET /favourites
func (h *PageHandler) Favourites(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.service.Favourites(sess))
}

// ProductDetail handles GET /product/{id}
func (h *PageHandler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view := h.service.ProductDetail(r.Context(), sess, id)
	status := http.StatusOK
	if view.NotFound {
		status = http.StatusNotFound
	}
	httputil.WriteData(w, status, view)
}

func writeNoSession(w http.ResponseWriter) {
	httputil.WriteProblem(w, nil, http.StatusInternalServerError, httputil.CodeInternal, "session not resolved")
}
