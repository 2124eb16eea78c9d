package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the limiter with a shared Redis counter so the quota
// holds across instances. Keys carry the window start, so expiry only has to
// be generous enough to outlive the window.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration, limit int) (int, bool, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, false, err
	}

	count := int(incr.Val())
	if count > limit {
		// Undo the over-limit increment so repeated rejections cannot run
		// the counter away from the real request count.
		if err := s.client.Decr(ctx, key).Err(); err != nil {
			return limit, false, err
		}
		return limit, false, nil
	}
	return count, true, nil
}
