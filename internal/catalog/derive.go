// Package catalog derives the displayed product list from the loaded catalog
// and the user's filter state.
package catalog

import (
	"slices"
	"strings"

	"github.com/sarthakastic/storefront/internal/domain"
)

// DeriveView applies search, category filter and price sort, in that order,
// and returns a new slice. The input is never modified. A nil or empty input
// yields an empty, non-nil result.
func DeriveView(products []domain.Product, filters domain.FilterState) []domain.Product {
	if len(products) == 0 {
		return []domain.Product{}
	}

	out := make([]domain.Product, 0, len(products))
	query := strings.ToLower(strings.TrimSpace(filters.SearchQuery))
	for _, p := range products {
		if query != "" && (p.Title == nil || !strings.Contains(strings.ToLower(*p.Title), query)) {
			continue
		}
		if filters.FiltersCategory() && p.Category != filters.Category {
			continue
		}
		out = append(out, p)
	}

	switch filters.SortOrder {
	case domain.SortPriceLow:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return compareFloat(a.PriceOrZero(), b.PriceOrZero())
		})
	case domain.SortPriceHigh:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return compareFloat(b.PriceOrZero(), a.PriceOrZero())
		})
	}

	return out
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CategoryOptions returns the category selector entries: "all" followed by
// the fetched categories. When fetched is empty (the categories request
// failed or is pending), the distinct categories of products are used in
// first-seen order.
func CategoryOptions(fetched []string, products []domain.Product) []string {
	opts := []string{domain.CategoryAll}
	if len(fetched) > 0 {
		return append(opts, fetched...)
	}

	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		opts = append(opts, p.Category)
	}
	return opts
}

// Empty-state messages for the home page.
const (
	MsgNoProducts    = "No products available"
	MsgNoMatches     = "No products match your filters"
	MsgNothingToShow = "No products found"
)

// EmptyMessage returns the text shown when the derived list is empty.
func EmptyMessage(products []domain.Product, filters domain.FilterState) string {
	switch {
	case len(products) == 0:
		return MsgNoProducts
	case filters.HasActiveFilter():
		return MsgNoMatches
	default:
		return MsgNothingToShow
	}
}
