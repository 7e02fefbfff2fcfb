package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sarthakastic/storefront/internal/domain"
	"github.com/sarthakastic/storefront/internal/fakestore"
	apperrors "github.com/sarthakastic/storefront/pkg/errors"
)

const (
	productsKey   = "catalog:products"
	categoriesKey = "catalog:categories"
)

// CatalogCache implements fakestore.Cache using Redis. Entries are stored as
// JSON and expire after ttl.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) GetProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.get(ctx, productsKey, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *CatalogCache) SetProducts(ctx context.Context, products []domain.Product) error {
	return c.set(ctx, productsKey, products)
}

func (c *CatalogCache) GetCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.get(ctx, categoriesKey, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *CatalogCache) SetCategories(ctx context.Context, categories []string) error {
	return c.set(ctx, categoriesKey, categories)
}

// Invalidate removes all cached catalog responses.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, productsKey, categoriesKey).Err(); err != nil {
		return fmt.Errorf("redis del catalog: %w", err)
	}
	return nil
}

func (c *CatalogCache) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.NotFound("catalog cache", key)
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (c *CatalogCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

var _ fakestore.Cache = (*CatalogCache)(nil)
