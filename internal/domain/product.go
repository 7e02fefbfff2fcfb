package domain

import (
	"strconv"
)

// Rating is the aggregate customer rating of a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a catalog item as returned by the remote catalog API.
// Title and Price may be absent upstream, so they are pointers.
// Products are never mutated after decoding.
type Product struct {
	ID          int      `json:"id" validate:"required,gt=0"`
	Title       *string  `json:"title"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Image       string   `json:"image"`
	Rating      *Rating  `json:"rating,omitempty"`
}

// TitleOrEmpty returns the title, or "" when it is absent.
func (p Product) TitleOrEmpty() string {
	if p.Title == nil {
		return ""
	}
	return *p.Title
}

// PriceOrZero returns the price, or 0 when it is absent.
func (p Product) PriceOrZero() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// RatingSummary returns the display values for the rating badge: the rate
// formatted as a string ("N/A" when unrated) and the review count.
func (p Product) RatingSummary() (rate string, count int) {
	if p.Rating == nil {
		return "N/A", 0
	}
	return strconv.FormatFloat(p.Rating.Rate, 'f', -1, 64), p.Rating.Count
}
