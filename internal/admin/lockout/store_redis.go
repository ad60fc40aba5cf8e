package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "escuela:"

// RedisStore shares counters between instances. INCR and EXPIRE NX run in
// one MULTI block so a counter never outlives its window.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed lockout store. The client lifecycle is
// managed by the caller.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) RecordAttempt(ctx context.Context, key string, window time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, keyPrefix+key)
		pipe.ExpireNX(ctx, keyPrefix+key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record login attempt: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear login attempts: %w", err)
	}
	return nil
}
