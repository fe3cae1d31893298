// Package cache wraps redis with the JSON get/set surface the gateway
// uses for synthesized-audio reuse and async job state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports a key with no value.
var ErrMiss = errors.New("cache miss")

type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewCache wraps client. defaultTTL applies when Set is called with ttl 0.
func NewCache(client *redis.Client, defaultTTL time.Duration) *Cache {
	return &Cache{client: client, defaultTTL: defaultTTL}
}

// Key joins parts into a namespaced cache key.
func Key(parts ...string) string {
	return "ttsgate:" + strings.Join(parts, ":")
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}
