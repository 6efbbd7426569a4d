package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
)

// Connect opens a Redis client for the admission lock and checks it with PING.
func Connect(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to Redis at %s: %w", cfg.Addr, err)
	}

	log.Info("REDIS", fmt.Sprintf("Successfully connected to Redis at %s for event locks", cfg.Addr))
	return client, nil
}

// New picks the Redis lock when Redis is configured and the in-process lock otherwise.
func New(client *redis.Client, cfg config.BookingConfig, log *logger.Logger) Locker {
	opts := Options{TTL: cfg.LockTTL, Wait: cfg.LockWait, Retry: cfg.LockRetry}
	if client == nil {
		log.Warn("REDIS", "Redis not configured, using in-process event locks (single instance only)")
		return NewLocal(opts)
	}
	return NewRedis(client, log, opts)
}
