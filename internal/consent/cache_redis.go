package consent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusCache fronts consent-status reads with Redis. Cache misses and
// Redis failures fall through to the store; writes invalidate the key.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func cacheKey(userID string) string {
	return "custodia:consent:" + userID
}

// Get returns the cached status map for a user, or ok=false on miss.
func (c *StatusCache) Get(ctx context.Context, userID string) (map[Type]Record, bool, error) {
	payload, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("consent cache get: %w", err)
	}
	var status map[Type]Record
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, false, fmt.Errorf("decode cached consent: %w", err)
	}
	return status, true, nil
}

// Set stores the status map for a user with the configured TTL.
func (c *StatusCache) Set(ctx context.Context, userID string, status map[Type]Record) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode consent status: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(userID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("consent cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached status after a consent write.
func (c *StatusCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("consent cache invalidate: %w", err)
	}
	return nil
}
