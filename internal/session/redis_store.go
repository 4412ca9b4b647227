package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisLedger creates a Redis-backed one-time id ledger.
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{
		client: client,
		prefix: "carry:",
	}
}

func (r *RedisLedger) key(id string) string {
	return r.prefix + id
}

func (r *RedisLedger) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("session: missing ledger id")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("session: ledger ttl must be positive")
	}

	first, err := r.client.SetNX(ctx, r.key(id), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("session: ledger write failed: %w", err)
	}
	return first, nil
}
