package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/models"
)

type slot struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed lock for single-instance deployments and tests.
type Local struct {
	mu    sync.Mutex
	slots map[int64]*slot
	opts  Options
}

func NewLocal(opts Options) *Local {
	return &Local{slots: make(map[int64]*slot), opts: opts.withDefaults()}
}

func (l *Local) Acquire(ctx context.Context, eventID int64) (Unlock, error) {
	s := l.ref(eventID)

	timer := time.NewTimer(l.opts.Wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(eventID)
			})
		}, nil
	case <-timer.C:
		l.unref(eventID)
		return nil, fmt.Errorf("%w: event %d is locked", models.ErrBusy, eventID)
	case <-ctx.Done():
		l.unref(eventID)
		return nil, ctx.Err()
	}
}

func (l *Local) ref(eventID int64) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[eventID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[eventID] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(eventID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[eventID]; ok {
		s.refs--
		if s.refs == 0 {
			delete(l.slots, eventID)
		}
	}
}

// held reports how many events currently have waiters or holders.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
