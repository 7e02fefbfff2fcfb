package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	pkgkafka "github.com/sarthakastic/storefront/pkg/kafka"
)

const processedKeyPrefix = "kafka:processed:"

// IdempotencyStore implements kafka.IdempotencyStore using Redis, so that
// replicas sharing a consumer group also share deduplication state.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, processedKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists processed event: %w", err)
	}
	return n > 0, nil
}

func (s *IdempotencyStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.SetNX(ctx, processedKeyPrefix+eventID, 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx processed event: %w", err)
	}
	return nil
}

var _ pkgkafka.IdempotencyStore = (*IdempotencyStore)(nil)
