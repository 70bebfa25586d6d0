package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient parses a redis URL and returns a client, or nil when the URL is
// empty or malformed (the engine runs without idempotency keys in that case).
func NewClient(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] error parsing connection string: %s", err.Error())
		return nil
	}
	return redis.NewClient(opt)
}

// RedisIdempotency claims reserve-intent keys with SETNX so a retried
// reserve cannot decrement stock twice inside the TTL window.
type RedisIdempotency struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotency(rdb *redis.Client, ttl time.Duration) *RedisIdempotency {
	return &RedisIdempotency{rdb: rdb, ttl: ttl}
}

func (r *RedisIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	return r.rdb.SetNX(ctx, key, 1, r.ttl).Result()
}
