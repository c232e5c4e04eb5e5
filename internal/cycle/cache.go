package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const latestNoneMarker = "none"

// Cache keeps the latest-closed-cycle lookup warm in Redis. Mutations
// invalidate the entry; a cached "none" is stored explicitly so the absence
// of a closed cycle is also served without hitting storage.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func latestKey(userID string) string {
	return "cycle:latest:" + userID
}

// GetLatest returns the cached latest closed cycle. The second return value
// reports whether the cache held an answer at all.
func (c *Cache) GetLatest(ctx context.Context, userID string) (*Cycle, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	payload, err := c.client.Get(ctx, latestKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if string(payload) == latestNoneMarker {
		return nil, true, nil
	}
	var cycle Cycle
	if err := json.Unmarshal(payload, &cycle); err != nil {
		return nil, false, err
	}
	return &cycle, true, nil
}

// SetLatest stores the latest closed cycle, or the explicit none marker.
func (c *Cache) SetLatest(ctx context.Context, userID string, cycle *Cycle) error {
	if c == nil || c.client == nil {
		return nil
	}
	if cycle == nil {
		return c.client.Set(ctx, latestKey(userID), latestNoneMarker, c.ttl).Err()
	}
	payload, err := json.Marshal(cycle)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestKey(userID), payload, c.ttl).Err()
}

// Invalidate drops the cached entry after a mutation.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, latestKey(userID)).Err()
}
