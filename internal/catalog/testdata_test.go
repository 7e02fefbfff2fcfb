package catalog

import "github.com/sarthakastic/storefront/internal/domain"

func strPtr(s string) *string      { return &s }
func floatPtr(f float64) *float64 { return &f }

// mockProducts mirrors the first five products of the public catalog.
func mockProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Title: strPtr("Fjallraven - Foldsack No. 1 Backpack, Fits 15 Laptops"), Price: floatPtr(109.95), Category: "men's clothing"},
		{ID: 2, Title: strPtr("Mens Casual Premium Slim Fit T-Shirts "), Price: floatPtr(22.3), Category: "men's clothing"},
		{ID: 3, Title: strPtr("Mens Cotton Jacket"), Price: floatPtr(55.99), Category: "men's clothing"},
		{ID: 4, Title: strPtr("Mens Casual Slim Fit"), Price: floatPtr(15.99), Category: "men's clothing"},
		{ID: 5, Title: strPtr("John Hardy Women's Legends Naga Gold & Silver Dragon Station Chain Bracelet"), Price: floatPtr(695), Category: "jewelery"},
	}
}

func ids(products []domain.Product) []int {
	out := make([]int, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}
