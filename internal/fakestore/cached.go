package fakestore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sarthakastic/storefront/internal/domain"
	apperrors "github.com/sarthakastic/storefront/pkg/errors"
)

// Cache stores catalog responses. Getters return an error matching
// apperrors.ErrNotFound on a miss.
type Cache interface {
	GetProducts(ctx context.Context) ([]domain.Product, error)
	SetProducts(ctx context.Context, products []domain.Product) error
	GetCategories(ctx context.Context) ([]string, error)
	SetCategories(ctx context.Context, categories []string) error
	Invalidate(ctx context.Context) error
}

// CachedCatalog serves the product list and categories from a Cache,
// filling it from the wrapped Catalog on a miss. Cache failures are logged
// and the call goes straight to the wrapped Catalog. Single products are
// never cached.
type CachedCatalog struct {
	next   Catalog
	cache  Cache
	logger *slog.Logger
}

func NewCachedCatalog(next Catalog, cache Cache, logger *slog.Logger) *CachedCatalog {
	return &CachedCatalog{next: next, cache: cache, logger: logger}
}

func (c *CachedCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if products, ok := lookup(ctx, c, "products", c.cache.GetProducts); ok {
		return products, nil
	}

	products, err := c.next.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetProducts(ctx, products); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed",
			slog.String("resource", "products"),
			slog.String("error", err.Error()),
		)
	}
	return products, nil
}

func (c *CachedCatalog) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	return c.next.GetProduct(ctx, id)
}

func (c *CachedCatalog) ListCategories(ctx context.Context) ([]string, error) {
	if categories, ok := lookup(ctx, c, "categories", c.cache.GetCategories); ok {
		return categories, nil
	}

	categories, err := c.next.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetCategories(ctx, categories); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed",
			slog.String("resource", "categories"),
			slog.String("error", err.Error()),
		)
	}
	return categories, nil
}

// Invalidate drops every cached response.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	return c.cache.Invalidate(ctx)
}

func lookup[T any](ctx context.Context, c *CachedCatalog, resource string, get func(context.Context) (T, error)) (T, bool) {
	v, err := get(ctx)
	switch {
	case err == nil:
		cacheLookups.WithLabelValues(resource, "hit").Inc()
		return v, true
	case errors.Is(err, apperrors.ErrNotFound):
		cacheLookups.WithLabelValues(resource, "miss").Inc()
	default:
		cacheLookups.WithLabelValues(resource, "error").Inc()
		c.logger.WarnContext(ctx, "catalog cache read failed",
			slog.String("resource", resource),
			slog.String("error", err.Error()),
		)
	}
	var zero T
	return zero, false
}

var _ Catalog = (*CachedCatalog)(nil)
