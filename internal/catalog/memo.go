package catalog

import (
	"sync"

	"github.com/sarthakastic/storefront/internal/domain"
)

// Memo caches the last DeriveView result. It recomputes only when the
// products version or the filter state differs from the cached inputs.
// Callers bump the version whenever they load a new product list.
type Memo struct {
	mu      sync.Mutex
	valid   bool
	version uint64
	filters domain.FilterState
	result  []domain.Product
}

// View returns the derived list for (products, filters), reusing the cached
// slice when the inputs are unchanged. The returned slice must be treated as
// read-only.
func (m *Memo) View(version uint64, products []domain.Product, filters domain.FilterState) []domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.version == version && m.filters == filters {
		return m.result
	}
	m.result = DeriveView(products, filters)
	m.version = version
	m.filters = filters
	m.valid = true
	return m.result
}

// Invalidate drops the cached result.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.result = nil
	m.mu.Unlock()
}
