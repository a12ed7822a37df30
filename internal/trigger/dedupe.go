package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper claims an event key so that only one worker replica handles it.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
}

type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisDeduper{client: client, ttl: ttl, prefix: "dentalflow:trigger:"}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("trigger: claim %s: %w", key, err)
	}
	return ok, nil
}
