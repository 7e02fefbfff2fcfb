package service

import (
	"github.com/sarthakastic/storefront/internal/domain"
	"github.com/sarthakastic/storefront/internal/fetch"
	"github.com/sarthakastic/storefront/internal/theme"
)

// Messages shown on the favourites and detail pages.
const (
	MsgNoFavorites     = "No favorites yet"
	MsgProductNotFound = "Product not found"
)

// HomeView is the product listing page. Products is only populated once the
// product fetch has fulfilled; while pending the page shows a loading
// skeleton and when rejected it shows Error inline.
type HomeView struct {
	State           fetch.State        `json:"state"`
	Error           string             `json:"error,omitempty"`
	Products        []domain.Product   `json:"products"`
	ProductsCount   int                `json:"products_count"`
	Categories      []string           `json:"categories"`
	Filters         domain.FilterState `json:"filters"`
	CanClearFilters bool               `json:"can_clear_filters"`
	EmptyMessage    string             `json:"empty_message,omitempty"`
	Theme           theme.Theme        `json:"theme"`
	FavoritesCount  int                `json:"favorites_count"`
	FavoriteIDs     []int              `json:"favorite_ids"`
}

// FavouritesView is the favourites page.
type FavouritesView struct {
	Count        int              `json:"count"`
	Products     []domain.Product `json:"products"`
	EmptyMessage string           `json:"empty_message,omitempty"`
	Theme        theme.Theme      `json:"theme"`
}

// DetailView is the product detail page. A product the catalog does not
// know is a fulfilled view with NotFound set.
type DetailView struct {
	State      fetch.State     `json:"state"`
	Error      string          `json:"error,omitempty"`
	Product    *domain.Product `json:"product"`
	Rating     *RatingView     `json:"rating,omitempty"`
	IsFavorite bool            `json:"is_favorite"`
	NotFound   bool            `json:"not_found"`
	Message    string          `json:"message,omitempty"`
	Theme      theme.Theme     `json:"theme"`
}

// RatingView is the rating line of the detail page.
type RatingView struct {
	Rate  string `json:"rate"`
	Count int    `json:"count"`
}

// FavoriteToggle is the result of a favourite toggle.
type FavoriteToggle struct {
	ProductID  int            `json:"product_id"`
	IsFavorite bool           `json:"is_favorite"`
	Favourites FavouritesView `json:"favourites"`
}

// FilterPatch is a partial filter update. Nil fields are left unchanged.
type FilterPatch struct {
	SearchQuery *string
	Category    *string
	SortOrder   *domain.SortOrder
}
