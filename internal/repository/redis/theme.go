package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sarthakastic/storefront/internal/theme"
	apperrors "github.com/sarthakastic/storefront/pkg/errors"
)

const themeKeyPrefix = "theme:"

// ThemeStore implements theme.Store using Redis. Keys expire ttl after their
// last read or write; a non-positive ttl keeps them forever.
type ThemeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewThemeStore(client *redis.Client, ttl time.Duration) *ThemeStore {
	return &ThemeStore{client: client, ttl: max(ttl, 0)}
}

// Load returns the stored theme for key, or a NotFound error. A hit slides
// the key's expiry forward.
func (s *ThemeStore) Load(ctx context.Context, key string) (theme.Theme, error) {
	var cmd *redis.StringCmd
	if s.ttl > 0 {
		cmd = s.client.GetEx(ctx, themeKeyPrefix+key, s.ttl)
	} else {
		cmd = s.client.Get(ctx, themeKeyPrefix+key)
	}
	v, err := cmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFound("theme", key)
		}
		return "", fmt.Errorf("redis get theme: %w", err)
	}
	return theme.Theme(v), nil
}

func (s *ThemeStore) Save(ctx context.Context, key string, t theme.Theme) error {
	if err := s.client.Set(ctx, themeKeyPrefix+key, string(t), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set theme: %w", err)
	}
	return nil
}

var _ theme.Store = (*ThemeStore)(nil)
