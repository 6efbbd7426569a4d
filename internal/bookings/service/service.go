package bookings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/database"
	"ms-booking/internal/lock"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type EventStore interface {
	GetForUpdate(ctx context.Context, idb bun.IDB, id int64) (*models.Event, error)
	SetTotalBooked(ctx context.Context, idb bun.IDB, id int64, total int) error
}

type Ledger interface {
	FindByUserAndEvent(ctx context.Context, idb bun.IDB, userID, eventID int64) (*models.Booking, error)
	Upsert(ctx context.Context, idb bun.IDB, userID, eventID int64, quantity int) (*models.Booking, error)
	GetByID(ctx context.Context, idb bun.IDB, id int64) (*models.Booking, error)
	ListForUser(ctx context.Context, idb bun.IDB, userID int64) ([]models.Booking, error)
	ListAll(ctx context.Context, idb bun.IDB) ([]models.Booking, error)
}

type BookingPublisher interface {
	PublishBookingCommitted(ctx context.Context, b models.BookingCommitted) error
}

type AvailabilityNotifier interface {
	Notify(a models.Availability)
}

// Result is what an admission call returns. A rejected result carries the
// caller's prior reservation, untouched.
type Result struct {
	Booking   *models.Booking
	Committed bool
	Event     *models.Event
}

type Service struct {
	DB          *bun.DB
	Events      EventStore
	Ledger      Ledger
	Locker      lock.Locker
	Publisher   BookingPublisher
	Notifier    AvailabilityNotifier
	Logger      *logger.Logger
	LockTimeout time.Duration

	// PublishTimeout bounds one Kafka publish after commit.
	PublishTimeout time.Duration
}

const defaultPublishTimeout = 5 * time.Second

func (s *Service) publishTimeout() time.Duration {
	if s.PublishTimeout > 0 {
		return s.PublishTimeout
	}
	return defaultPublishTimeout
}

func NewService(db *bun.DB, events EventStore, ledger Ledger, locker lock.Locker, log *logger.Logger) *Service {
	return &Service{DB: db, Events: events, Ledger: ledger, Locker: locker, Logger: log}
}

// Book runs admission for user against req.EventID. Same-event calls are
// serialized by the event lock and the event row lock; the counter and
// the ledger row commit together or not at all.
func (s *Service) Book(ctx context.Context, user *models.User, req models.BookingRequest) (*Result, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	if req.Quantity <= 0 {
		return nil, models.ValidationError("quantity", "must be a positive integer")
	}

	unlock, err := s.Locker.Acquire(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	release := sync.OnceFunc(unlock)
	defer release()

	var (
		result   *Result
		decision Decision
	)
	err = database.RunInTx(ctx, s.DB, s.LockTimeout, func(ctx context.Context, tx bun.Tx) error {
		event, err := s.Events.GetForUpdate(ctx, tx, req.EventID)
		if err != nil {
			return err
		}

		prior, err := s.Ledger.FindByUserAndEvent(ctx, tx, user.ID, event.ID)
		if err != nil {
			return err
		}
		existing := 0
		if prior != nil {
			existing = prior.Quantity
		}

		decision, err = Admit(event.TotalBooked, event.MaximumCapacity, existing, req.Quantity)
		if err != nil {
			return err
		}
		if !decision.Accepted {
			if prior == nil {
				return fmt.Errorf("%w: %d requested, %d remaining", models.ErrCapacityExceeded, req.Quantity, event.Remaining())
			}
			result = &Result{Booking: prior, Event: event}
			return nil
		}

		if err := s.Events.SetTotalBooked(ctx, tx, event.ID, decision.TotalBooked); err != nil {
			return err
		}
		booking, err := s.Ledger.Upsert(ctx, tx, user.ID, event.ID, decision.Quantity)
		if err != nil {
			return err
		}
		event.TotalBooked = decision.TotalBooked
		result = &Result{Booking: booking, Committed: true, Event: event}
		return nil
	})
	if err == nil && result.Committed && s.Notifier != nil {
		// under the lock so streams see availability in commit order
		s.Notifier.Notify(models.AvailabilityOf(result.Event))
	}
	release()

	if err != nil {
		s.Logger.LogBooking("REJECT", req.EventID, fmt.Sprintf("user=%d quantity=%d: %v", user.ID, req.Quantity, err))
		return nil, err
	}

	if !result.Committed {
		s.Logger.LogBooking("REJECT", req.EventID, fmt.Sprintf("user=%d quantity=%d exceeds remaining %d, prior booking kept", user.ID, req.Quantity, result.Event.Remaining()))
		return result, nil
	}

	s.Logger.LogBooking("ACCEPT", req.EventID, fmt.Sprintf("user=%d quantity=%d total=%d/%d", user.ID, req.Quantity, decision.TotalBooked, result.Event.MaximumCapacity))
	s.publish(ctx, user, req, result)
	return result, nil
}

// publish announces a committed admission once the event lock is released.
// Failures only get logged.
func (s *Service) publish(ctx context.Context, user *models.User, req models.BookingRequest, r *Result) {
	if s.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout())
	defer cancel()

	msg := models.BookingCommitted{
		BookingID:       r.Booking.ID,
		EventID:         r.Event.ID,
		UserID:          user.ID,
		Requested:       req.Quantity,
		Quantity:        r.Booking.Quantity,
		TotalBooked:     r.Event.TotalBooked,
		MaximumCapacity: r.Event.MaximumCapacity,
		CommittedAt:     time.Now().UTC(),
	}
	if err := s.Publisher.PublishBookingCommitted(ctx, msg); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("booking %d not published: %v", r.Booking.ID, err))
	}
}

// List returns the caller's own bookings, or every booking for admins.
func (s *Service) List(ctx context.Context, user *models.User, admin bool) ([]models.Booking, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	if admin {
		return s.Ledger.ListAll(ctx, s.DB)
	}
	return s.Ledger.ListForUser(ctx, s.DB, user.ID)
}

// Get returns one booking visible to the caller. Other users' bookings
// read as not found.
func (s *Service) Get(ctx context.Context, user *models.User, admin bool, id int64) (*models.Booking, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	booking, err := s.Ledger.GetByID(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if !admin && booking.UserID != user.ID {
		return nil, models.NotFound("booking", id)
	}
	return booking, nil
}
