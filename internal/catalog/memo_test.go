package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sarthakastic/storefront/internal/domain"
)

func TestMemo_ReusesResultForSameInputs(t *testing.T) {
	var m Memo
	products := mockProducts()
	f := domain.DefaultFilters().WithSortOrder(domain.SortPriceLow)

	first := m.View(1, products, f)
	second := m.View(1, products, f)

	assert.Equal(t, []int{4, 2, 3, 1, 5}, ids(first))
	assert.Same(t, &first[0], &second[0])
}

func TestMemo_RecomputesOnFilterOrVersionChange(t *testing.T) {
	var m Memo
	products := mockProducts()

	all := m.View(1, products, domain.DefaultFilters())
	assert.Len(t, all, 5)

	jewelery := m.View(1, products, domain.DefaultFilters().WithCategory("jewelery"))
	assert.Equal(t, []int{5}, ids(jewelery))

	reloaded := m.View(2, products[:2], domain.DefaultFilters().WithCategory("jewelery"))
	assert.Empty(t, reloaded)
}

func TestMemo_Invalidate(t *testing.T) {
	var m Memo
	products := mockProducts()
	f := domain.DefaultFilters()

	_ = m.View(1, products, f)
	m.Invalidate()

	got := m.View(1, products[:1], f)
	assert.Equal(t, []int{1}, ids(got))
}
