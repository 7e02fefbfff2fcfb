package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sarthakastic/storefront/internal/domain"
	"github.com/sarthakastic/storefront/internal/fakestore"
	"github.com/sarthakastic/storefront/internal/service"
	"github.com/sarthakastic/storefront/internal/theme"
	apperrors "github.com/sarthakastic/storefront/pkg/errors"
	"github.com/sarthakastic/storefront/pkg/httputil"
	"github.com/sarthakastic/storefront/pkg/validator"
)

// APIHandler handles the session mutation endpoints.
type APIHandler struct {
	service *service.StorefrontService
	logger  *slog.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(svc *service.StorefrontService, logger *slog.Logger) *APIHandler {
	return &APIHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// UpdateFiltersRequest is the JSON body of PUT /api/v1/filters. Omitted
// fields are left unchanged.
type UpdateFiltersRequest struct {
	SearchQuery *string `json:"search_query" validate:"omitnil,max=200"`
	Category    *string `json:"category" validate:"omitnil,min=1,max=100"`
	SortOrder   *string `json:"sort_order" validate:"omitnil,oneof=none price-low price-high"`
}

// SearchInputRequest is the JSON body of POST /api/v1/filters/search-input.
type SearchInputRequest struct {
	Value string `json:"value" validate:"max=200"`
}

// --- Response DTOs ---

// ThemeResponse is returned by the theme endpoints.
type ThemeResponse struct {
	Theme theme.Theme `json:"theme"`
}

// SearchInputResponse acknowledges debounced search input.
type SearchInputResponse struct {
	Pending bool               `json:"pending"`
	Filters domain.FilterState `json:"filters"`
}

// --- Filters ---

// GetFilters handles GET /api/v1/filters
func (h *APIHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.service.Filters(sess))
}

// UpdateFilters handles PUT /api/v1/filters
func (h *APIHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}

	var req UpdateFiltersRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	patch := service.FilterPatch{SearchQuery: req.SearchQuery, Category: req.Category}
	if req.SortOrder != nil {
		order := domain.SortOrder(*req.SortOrder)
		patch.SortOrder = &order
	}
	httputil.WriteData(w, http.StatusOK, h.service.ApplyFilters(r.Context(), sess, patch))
}

// PushSearchInput handles POST /api/v1/filters/search-input
func (h *APIHandler) PushSearchInput(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}

	var req SearchInputRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	h.service.PushSearchInput(sess, req.Value)
	httputil.WriteData(w, http.StatusAccepted, SearchInputResponse{
		Pending: sess.SearchPending(),
		Filters: h.service.Filters(sess),
	})
}

// ResetFilters handles DELETE /api/v1/filters
func (h *APIHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.service.ResetFilters(r.Context(), sess))
}

// --- Favourites ---

// ListFavourites handles GET /api/v1/favourites
func (h *APIHandler) ListFavourites(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.service.Favourites(sess))
}

// AddFavourite handles PUT /api/v1/favourites/{id}
func (h *APIHandler) AddFavourite(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view, err := h.service.AddFavorite(r.Context(), sess, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// RemoveFavourite handles DELETE /api/v1/favourites/{id}
func (h *APIHandler) RemoveFavourite(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, h.service.RemoveFavorite(r.Context(), sess, id))
}

// ToggleFavourite handles POST /api/v1/favourites/{id}/toggle
func (h *APIHandler) ToggleFavourite(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	res, err := h.service.ToggleFavorite(r.Context(), sess, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

// --- Theme ---

// GetTheme handles GET /api/v1/theme
func (h *APIHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	httputil.WriteData(w, http.StatusOK, ThemeResponse{Theme: h.service.Theme(sess)})
}

// ToggleTheme handles POST /api/v1/theme/toggle
func (h *APIHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	httputil.WriteData(w, http.StatusOK, ThemeResponse{Theme: h.service.ToggleTheme(r.Context(), sess)})
}

// --- Session ---

// EndSession handles DELETE /api/v1/session
func (h *APIHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeNoSession(w)
		return
	}
	h.service.EndSession(sess)
	w.WriteHeader(http.StatusNoContent)
}

// writeError renders catalog failures as 502 with their user-facing
// message; everything else goes through the shared error envelope.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var netErr *fakestore.NetworkError
	if !errors.Is(err, apperrors.ErrNotFound) && errors.As(err, &netErr) {
		h.logger.WarnContext(r.Context(), "catalog request failed",
			slog.String("op", netErr.Op),
			slog.String("error", err.Error()),
		)
		httputil.WriteProblem(w, r, http.StatusBadGateway, httputil.CodeUpstream, netErr.Message)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}
