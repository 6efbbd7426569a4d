package lock

import (
	"context"
	"time"
)

// Unlock releases a held lock. It is safe to call once.
type Unlock func()

// Locker serializes admission and catalog writes per event.
// Acquire waits up to the configured wait time and then fails with models.ErrBusy.
type Locker interface {
	Acquire(ctx context.Context, eventID int64) (Unlock, error)
}

type Options struct {
	// TTL bounds how long a crashed holder can block others (Redis only).
	TTL time.Duration
	// Wait is the longest Acquire blocks before giving up.
	Wait time.Duration
	// Retry is the Redis polling interval.
	Retry time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.Wait <= 0 {
		o.Wait = 3 * time.Second
	}
	if o.Retry <= 0 {
		o.Retry = 25 * time.Millisecond
	}
	return o
}
