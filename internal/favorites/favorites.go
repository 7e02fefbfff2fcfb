// Package favorites manages the per-session set of favourite products.
//
// A Set is an ordered slice that is unique by product ID. Every operation is
// copy-on-write: the argument is never modified and a fresh slice is
// returned, so a Set read by one goroutine stays valid while another
// replaces it.
package favorites

import (
	"slices"

	"github.com/sarthakastic/storefront/internal/domain"
)

// Set is an insertion-ordered list of favourite products.
type Set []domain.Product

// Add appends p unless a product with the same ID is already present.
func Add(set Set, p domain.Product) Set {
	if IsFavorite(set, p.ID) {
		return clone(set)
	}
	out := make(Set, len(set), len(set)+1)
	copy(out, set)
	return append(out, p)
}

// Remove drops the product with the given ID. Removing an absent ID is a no-op.
func Remove(set Set, id int) Set {
	out := make(Set, 0, len(set))
	for _, p := range set {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// Toggle removes p if it is present, otherwise appends it.
func Toggle(set Set, p domain.Product) Set {
	if IsFavorite(set, p.ID) {
		return Remove(set, p.ID)
	}
	return Add(set, p)
}

// IsFavorite reports whether a product with the given ID is in the set.
func IsFavorite(set Set, id int) bool {
	return slices.ContainsFunc(set, func(p domain.Product) bool { return p.ID == id })
}

// IDs returns the product IDs in insertion order.
func (s Set) IDs() []int {
	out := make([]int, len(s))
	for i, p := range s {
		out[i] = p.ID
	}
	return out
}

func clone(set Set) Set {
	out := make(Set, len(set))
	copy(out, set)
	return out
}
