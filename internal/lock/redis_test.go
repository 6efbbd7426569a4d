package lock

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// setupTestRedis creates a Redis client backed by miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func newTestRedisLock(client *redis.Client) *Redis {
	return NewRedis(client, logger.NewWriterLogger(io.Discard), Options{
		TTL:   time.Second,
		Wait:  100 * time.Millisecond,
		Retry: 5 * time.Millisecond,
	})
}

func TestRedisAcquireRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)
	l := newTestRedisLock(client)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, 42)
	require.NoError(t, err)
	assert.True(t, mr.Exists("event_lock:42"))
	assert.Equal(t, time.Second, mr.TTL("event_lock:42"))

	// another event is independent
	other, err := l.Acquire(ctx, 43)
	require.NoError(t, err)
	other()

	unlock()
	assert.False(t, mr.Exists("event_lock:42"))

	unlock, err = l.Acquire(ctx, 42)
	require.NoError(t, err)
	unlock()
}

func TestRedisAcquireTimesOutWithBusy(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)
	l := newTestRedisLock(client)

	unlock, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	start := time.Now()
	_, err = l.Acquire(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrBusy)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestRedisReleaseOnlyDeletesOwnToken(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)
	l := newTestRedisLock(client)

	unlock, err := l.Acquire(context.Background(), 7)
	require.NoError(t, err)

	// simulate TTL expiry and another holder taking over
	mr.Del(Key(7))
	require.NoError(t, mr.Set(Key(7), "someone-else"))

	unlock()
	val, err := mr.Get(Key(7))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestRedisAcquireWaitsForRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)
	l := NewRedis(client, logger.NewWriterLogger(io.Discard), Options{
		TTL:   5 * time.Second,
		Wait:  2 * time.Second,
		Retry: 2 * time.Millisecond,
	})

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Acquire(context.Background(), 99)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "holders must never overlap")
}

func TestConnectAndNew(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	log := logger.NewWriterLogger(io.Discard)

	client, err := Connect(context.Background(), config.RedisConfig{Addr: mr.Addr()}, log)
	require.NoError(t, err)
	defer client.Close()

	cfg := config.BookingConfig{LockTTL: time.Second, LockWait: time.Second, LockRetry: time.Millisecond}
	assert.IsType(t, &Redis{}, New(client, cfg, log))
	assert.IsType(t, &Local{}, New(nil, cfg, log))

	mr.Close()
	_, err = Connect(context.Background(), config.RedisConfig{Addr: mr.Addr()}, log)
	assert.Error(t, err)
}
