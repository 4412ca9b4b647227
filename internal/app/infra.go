package app

import (
	"context"

	"role-gate/internal/config"
	"role-gate/internal/logger"
	"role-gate/internal/redis"
	"role-gate/internal/session"
)

type Infra struct {
	Redis  *redis.Client
	Ledger session.Ledger
}

// setupInfra connects the optional Redis ledger. Without REDIS_ADDR the
// service stays fully stateless and carry tokens are bounded by expiry.
func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured; carry token ledger disabled", nil)
		return &Infra{Ledger: session.NopLedger{}}, nil
	}

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})

	return &Infra{
		Redis:  redisClient,
		Ledger: session.NewRedisLedger(redisClient.Client),
	}, nil
}

func (i *Infra) Close() error {
	if i.Redis != nil {
		return i.Redis.Close()
	}
	return nil
}
