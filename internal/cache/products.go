package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/domain"
)

const productPageKeyPrefix = "products:page:"

// ProductCache holds rendered product list pages. Every catalog write
// invalidates all pages.
type ProductCache interface {
	GetPage(ctx context.Context, page, pageSize int) (*domain.ProductPage, bool, error)
	SetPage(ctx context.Context, page, pageSize int, result *domain.ProductPage) error
	InvalidateAll(ctx context.Context) error
}

type redisProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopProductCache struct{}

func NewProductCache(cfg config.CacheConfig) (ProductCache, error) {
	if !cfg.Enabled {
		return &noopProductCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisProductCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopProductCache() ProductCache {
	return &noopProductCache{}
}

func (c *redisProductCache) GetPage(ctx context.Context, page, pageSize int) (*domain.ProductPage, bool, error) {
	payload, err := c.client.Get(ctx, productPageKey(page, pageSize)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.ProductPage
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode product page cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisProductCache) SetPage(ctx context.Context, page, pageSize int, result *domain.ProductPage) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode product page cache: %w", err)
	}

	if err := c.client.Set(ctx, productPageKey(page, pageSize), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisProductCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, productPageKeyPrefix, scanBatchSize)
}

func (n *noopProductCache) GetPage(ctx context.Context, page, pageSize int) (*domain.ProductPage, bool, error) {
	return nil, false, nil
}

func (n *noopProductCache) SetPage(ctx context.Context, page, pageSize int, result *domain.ProductPage) error {
	return nil
}

func (n *noopProductCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func productPageKey(page, pageSize int) string {
	return fmt.Sprintf("%s%d:%d", productPageKeyPrefix, pageSize, page)
}
