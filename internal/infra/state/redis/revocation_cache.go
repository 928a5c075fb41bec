package redisstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRevocationCache caches revoked token hashes until their expiry.
type RedisRevocationCache struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisRevocationCache(client *redis.Client, keyPrefix string) *RedisRevocationCache {
	if client == nil {
		panic("redis client cannot be nil for RedisRevocationCache")
	}
	if keyPrefix == "" {
		keyPrefix = "whistle:"
	}
	return &RedisRevocationCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisRevocationCache) revokedKey(tokenHash string) string {
	return fmt.Sprintf("%srevoked:%s", c.keyPrefix, tokenHash)
}

func (c *RedisRevocationCache) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	err := c.client.Get(ctx, c.revokedKey(tokenHash)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis: lookup revoked token: %w", err)
	}
	return true, nil
}

func (c *RedisRevocationCache) MarkRevoked(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.revokedKey(tokenHash), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis: cache revoked token: %w", err)
	}
	return nil
}
