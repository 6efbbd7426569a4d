package sse

import (
	"context"
	"sync"

	"ms-booking/internal/models"
)

// AvailabilityEmitter fans remaining-capacity updates out to SSE subscribers per event.
type AvailabilityEmitter struct {
	clients map[int64][]chan models.Availability
	mu      sync.RWMutex
}

func NewAvailabilityEmitter() *AvailabilityEmitter {
	return &AvailabilityEmitter{
		clients: make(map[int64][]chan models.Availability),
	}
}

// Subscribe registers a client until ctx is done or the event is closed.
func (e *AvailabilityEmitter) Subscribe(ctx context.Context, eventID int64) <-chan models.Availability {
	ch := make(chan models.Availability, 10)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, ch)
	}()

	return ch
}

// Notify broadcasts without blocking; a client with a full buffer misses this update.
func (e *AvailabilityEmitter) Notify(a models.Availability) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.clients[a.EventID] {
		select {
		case ch <- a:
		default:
		}
	}
}

// Close ends every stream for a deleted event.
func (e *AvailabilityEmitter) Close(eventID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.clients[eventID] {
		close(ch)
	}
	delete(e.clients, eventID)
}

func (e *AvailabilityEmitter) remove(eventID int64, ch chan models.Availability) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, c := range clients {
		if c == ch {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

func (e *AvailabilityEmitter) ClientCount(eventID int64) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}
