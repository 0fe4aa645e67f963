package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard implements Guard with SET NX: the first writer of an event key
// wins, later deliveries of the same key are reported as duplicates. Keys
// expire so the guard does not grow without bound.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ Guard = (*RedisGuard)(nil)

// NewRedisGuard builds a guard with the given retention for seen keys.
func NewRedisGuard(client redis.UniversalClient, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// FirstDelivery returns true exactly once per key within the retention
// window.
func (g *RedisGuard) FirstDelivery(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, "inventory:event:"+key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("guard setnx: %w", err)
	}
	return ok, nil
}
