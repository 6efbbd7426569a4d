package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking is the ledger row: one merged reservation per (event, user).
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	EventID   int64     `bun:"event_id,notnull" json:"event"`
	UserID    int64     `bun:"user_id,notnull" json:"event_user"`
	Quantity  int       `bun:"quantity,notnull" json:"quantity"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id" json:"-"`
}

// BookingRequest is the typed body of POST /events/booking/create/.
// The booking user always comes from the authenticated caller.
type BookingRequest struct {
	EventID  int64 `json:"event" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0,lte=2147483647"`
}

// PassCheckRequest carries the token read from a scanned booking pass.
type PassCheckRequest struct {
	Pass string `json:"pass" validate:"required"`
}

// BookingCommitted is published after an admission commits.
type BookingCommitted struct {
	BookingID       int64     `json:"booking_id"`
	EventID         int64     `json:"event_id"`
	UserID          int64     `json:"user_id"`
	Requested       int       `json:"requested"`
	Quantity        int       `json:"quantity"`
	TotalBooked     int       `json:"total_booked"`
	MaximumCapacity int       `json:"maximum_capacity"`
	CommittedAt     time.Time `json:"committed_at"`
}

// EventChanged is published after a catalog write.
type EventChanged struct {
	EventID int64     `json:"event_id"`
	Action  string    `json:"action"`
	ActorID int64     `json:"actor_id"`
	At      time.Time `json:"at"`
}

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Availability is the remaining-capacity snapshot streamed to clients.
type Availability struct {
	EventID         int64 `json:"event_id"`
	TotalBooked     int   `json:"total_booked"`
	MaximumCapacity int   `json:"maximum_capacity"`
	Remaining       int   `json:"remaining"`
}

func AvailabilityOf(e *Event) Availability {
	return Availability{
		EventID:         e.ID,
		TotalBooked:     e.TotalBooked,
		MaximumCapacity: e.MaximumCapacity,
		Remaining:       e.Remaining(),
	}
}
