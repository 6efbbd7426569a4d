package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a SETNX lock shared by every instance pointing at the same server.
type Redis struct {
	Client *redis.Client
	Logger *logger.Logger
	opts   Options
}

func NewRedis(client *redis.Client, log *logger.Logger, opts Options) *Redis {
	return &Redis{Client: client, Logger: log, opts: opts.withDefaults()}
}

func Key(eventID int64) string {
	return fmt.Sprintf("event_lock:%d", eventID)
}

func (r *Redis) Acquire(ctx context.Context, eventID int64) (Unlock, error) {
	key := Key(eventID)
	token := uuid.NewString()
	deadline := time.Now().Add(r.opts.Wait)

	for {
		ok, err := r.Client.SetNX(ctx, key, token, r.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return r.unlocker(key, token), nil
		}
		if time.Now().After(deadline) {
			r.Logger.Warn("REDIS", fmt.Sprintf("Timed out waiting for %s", key))
			return nil, fmt.Errorf("%w: event %d is locked", models.ErrBusy, eventID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.opts.Retry):
		}
	}
}

func (r *Redis) unlocker(key, token string) Unlock {
	return func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.Client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			r.Logger.Error("REDIS", fmt.Sprintf("Failed to release %s: %v", key, err))
		}
	}
}
