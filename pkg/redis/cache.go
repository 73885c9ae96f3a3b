package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brightpath/safescan/pkg/json"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache provides JSON value caching on top of Redis.
type Cache struct {
	client *Client
	kb     *KeyBuilder
	log    *zap.Logger
}

// NewCache creates a new Cache instance scoped to a namespace and context.
func NewCache(client *Client, namespace, context string) *Cache {
	return &Cache{
		client: client,
		kb:     NewKeyBuilder(namespace, context),
		log:    client.log.With(zap.String("module", "cache")),
	}
}

// GetClient returns the underlying Redis client
func (c *Cache) GetClient() *Client {
	return c.client
}

// Set stores a value in the cache with the given TTL
func (c *Cache) Set(ctx context.Context, entity, attribute string, value interface{}, ttl time.Duration) error {
	key := c.kb.Build(entity, attribute)
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Error("failed to set cache",
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// Get retrieves a value from the cache. Returns ErrCacheMiss when the key is absent.
func (c *Cache) Get(ctx context.Context, entity, attribute string, value interface{}) error {
	key := c.kb.Build(entity, attribute)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		c.log.Error("failed to get cache",
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// Delete removes a value from the cache
func (c *Cache) Delete(ctx context.Context, entity, attribute string) error {
	key := c.kb.Build(entity, attribute)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Error("failed to delete cache",
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to delete cache: %w", err)
	}

	return nil
}
