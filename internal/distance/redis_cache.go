package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "distance:"

// RedisCache shares distance entries between API instances. Expiry is left to
// Redis via SET EX.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache wraps a go-redis client.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, origin, destination string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+cacheKey(origin, destination)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get distance: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached distance: %w", err)
	}
	return entry, true, nil
}

func (r *RedisCache) Set(ctx context.Context, origin, destination string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cached distance: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+cacheKey(origin, destination), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set distance: %w", err)
	}
	return nil
}
