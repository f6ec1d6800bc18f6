package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports"
)

const (
	CategoriesKey      = "westudy:categories"
	DefaultCategoryTTL = 6 * time.Hour
)

// CategoryCache serves the category taxonomy from redis and falls through to
// the wrapped API on a miss. Redis failures degrade to a direct API call.
type CategoryCache struct {
	client *redis.Client
	next   ports.CategoryAPI
	ttl    time.Duration
	logger *zap.Logger
}

func NewCategoryCache(client *redis.Client, next ports.CategoryAPI, ttl time.Duration, logger *zap.Logger) *CategoryCache {
	if ttl <= 0 {
		ttl = DefaultCategoryTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryCache{client: client, next: next, ttl: ttl, logger: logger}
}

func (c *CategoryCache) GetCategories(ctx context.Context) ([]domain.Category, error) {
	raw, err := c.client.Get(ctx, CategoriesKey).Result()
	switch {
	case err == nil:
		var categories []domain.Category
		if jsonErr := json.Unmarshal([]byte(raw), &categories); jsonErr == nil {
			return categories, nil
		}
		c.logger.Warn("ignoring unreadable cached categories")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("category cache read failed", zap.Error(err))
	}

	categories, err := c.next.GetCategories(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(categories)
	if err != nil {
		return categories, nil
	}
	if err := c.client.Set(ctx, CategoriesKey, string(payload), c.ttl).Err(); err != nil {
		c.logger.Warn("category cache write failed", zap.Error(err))
	}

	return categories, nil
}

func (c *CategoryCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, CategoriesKey).Err()
}
