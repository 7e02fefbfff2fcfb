package domain

// SortOrder selects how the derived product list is ordered.
type SortOrder string

const (
	SortNone      SortOrder = "none"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
)

// CategoryAll disables the category filter.
const CategoryAll = "all"

// Valid reports whether s is one of the known sort orders.
func (s SortOrder) Valid() bool {
	switch s {
	case SortNone, SortPriceLow, SortPriceHigh:
		return true
	}
	return false
}

// FilterState is the user-controlled filter configuration. It is a value
// type: the With* methods return modified copies. An empty Category means
// CategoryAll, so the zero value filters nothing.
type FilterState struct {
	SearchQuery string    `json:"search_query"`
	Category    string    `json:"category"`
	SortOrder   SortOrder `json:"sort_order"`
}

// DefaultFilters returns the initial filter state.
func DefaultFilters() FilterState {
	return FilterState{
		SearchQuery: "",
		Category:    CategoryAll,
		SortOrder:   SortNone,
	}
}

func (f FilterState) WithSearchQuery(q string) FilterState {
	f.SearchQuery = q
	return f
}

func (f FilterState) WithCategory(c string) FilterState {
	f.Category = c
	return f
}

func (f FilterState) WithSortOrder(s SortOrder) FilterState {
	f.SortOrder = s
	return f
}

// Reset returns the default filter state.
func (f FilterState) Reset() FilterState {
	return DefaultFilters()
}

// IsDefault reports whether no filter is active. The "Clear Filters"
// control is only enabled when this is false.
func (f FilterState) IsDefault() bool {
	return f == DefaultFilters()
}

// HasActiveFilter reports whether a search query or category narrows the list.
func (f FilterState) HasActiveFilter() bool {
	return f.SearchQuery != "" || f.FiltersCategory()
}

// FiltersCategory reports whether a specific category is selected.
func (f FilterState) FiltersCategory() bool {
	return f.Category != "" && f.Category != CategoryAll
}
