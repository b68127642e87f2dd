package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix   = "lock:"
	resultKeyPrefix = "idempotency:"
)

// IdempotencyCache implements the lease and the result cache for transfers.
//
// The lease is a best-effort mutex: SET NX with a TTL so a crashed holder
// cannot block a key forever. Cached results are opaque JSON payloads owned
// by the caller; losing them is safe because the database replay path
// reconstructs the same answer.
type IdempotencyCache struct {
	client *redis.Client
}

// NewIdempotencyCache creates an IdempotencyCache over the client.
func NewIdempotencyCache(client *redis.Client) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// TryAcquire attempts to take the lease for an idempotency key. Returns
// false when another request currently holds it.
func (c *IdempotencyCache) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := c.client.SetNX(ctx, lockKeyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease for %s: %w", key, err)
	}
	return acquired, nil
}

// Release drops the lease. Callers invoke this on every exit path; a
// missing key is not an error.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, lockKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release lease for %s: %w", key, err)
	}
	return nil
}

// PutResult stores the serialized outcome of a completed transfer.
func (c *IdempotencyCache) PutResult(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, resultKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result for %s: %w", key, err)
	}
	return nil
}

// GetResult returns the cached outcome for a key, or found=false on a miss.
func (c *IdempotencyCache) GetResult(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, resultKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached result for %s: %w", key, err)
	}
	return data, true, nil
}
