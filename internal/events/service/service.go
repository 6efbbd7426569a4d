package events

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
	Insert(ctx context.Context, idb bun.IDB, event *models.Event) error
	GetByID(ctx context.Context, idb bun.IDB, id int64) (*models.Event, error)
	GetForUpdate(ctx context.Context, idb bun.IDB, id int64) (*models.Event, error)
	List(ctx context.Context, idb bun.IDB) ([]models.Event, error)
	Update(ctx context.Context, idb bun.IDB, event *models.Event, columns ...string) error
	Delete(ctx context.Context, idb bun.IDB, id int64) error
}

type ChangePublisher interface {
	PublishEventChanged(ctx context.Context, change models.EventChanged) error
}

type AvailabilityNotifier interface {
	Notify(a models.Availability)
	Close(eventID int64)
}

// Service is the Event Catalog. Writes that can race with admission
// (update, delete) take the same per-event lock and row lock as bookings.
type Service struct {
	DB          *bun.DB
	Store       EventStore
	Locker      lock.Locker
	Publisher   ChangePublisher
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

func NewService(db *bun.DB, store EventStore, locker lock.Locker, log *logger.Logger) *Service {
	return &Service{DB: db, Store: store, Locker: locker, Logger: log}
}

func (s *Service) Create(ctx context.Context, actor *models.User, in models.EventInput) (*models.Event, error) {
	if actor == nil {
		return nil, models.ErrUnauthorized
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	event := &models.Event{UserID: actor.ID}
	in.Patch().Apply(event)

	if err := s.Store.Insert(ctx, s.DB, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.Logger.LogDatabase("INSERT", "events", fmt.Sprintf("event %d %q created by user %d", event.ID, event.Title, actor.ID))
	s.publish(ctx, event.ID, models.EventCreated, actor)
	return event, nil
}

func (s *Service) List(ctx context.Context) ([]models.Event, error) {
	events, err := s.Store.List(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Event, error) {
	return s.Store.GetByID(ctx, s.DB, id)
}

// Replace is a full update: every writable field is overwritten.
func (s *Service) Replace(ctx context.Context, actor *models.User, id int64, in models.EventInput) (*models.Event, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, id, in.Patch())
}

// Update merges the given fields and leaves the rest untouched.
func (s *Service) Update(ctx context.Context, actor *models.User, id int64, patch models.EventPatch) (*models.Event, error) {
	if err := models.Validate(patch); err != nil {
		return nil, err
	}
	if patch.Price != nil {
		if err := models.ValidatePrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	return s.apply(ctx, actor, id, patch)
}

func (s *Service) apply(ctx context.Context, actor *models.User, id int64, patch models.EventPatch) (*models.Event, error) {
	if actor == nil {
		return nil, models.ErrUnauthorized
	}

	unlock, err := s.Locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	release := sync.OnceFunc(unlock)
	defer release()

	var event *models.Event
	err = database.RunInTx(ctx, s.DB, s.LockTimeout, func(ctx context.Context, tx bun.Tx) error {
		current, err := s.Store.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		columns := patch.Apply(current)
		if current.MaximumCapacity < current.TotalBooked {
			return models.ValidationError("maximum_capacity",
				fmt.Sprintf("cannot be lower than the %d tickets already booked", current.TotalBooked))
		}
		if len(columns) > 0 {
			if err := s.Store.Update(ctx, tx, current, columns...); err != nil {
				return err
			}
		}
		event = current
		return nil
	})
	if err == nil && s.Notifier != nil {
		s.Notifier.Notify(models.AvailabilityOf(event))
	}
	release()
	if err != nil {
		return nil, err
	}

	s.Logger.LogDatabase("UPDATE", "events", fmt.Sprintf("event %d updated by user %d", id, actor.ID))
	s.publish(ctx, id, models.EventUpdated, actor)
	return event, nil
}

// Delete removes the event and its bookings in one transaction.
func (s *Service) Delete(ctx context.Context, actor *models.User, id int64) error {
	if actor == nil {
		return models.ErrUnauthorized
	}

	unlock, err := s.Locker.Acquire(ctx, id)
	if err != nil {
		return err
	}
	release := sync.OnceFunc(unlock)
	defer release()

	err = database.RunInTx(ctx, s.DB, s.LockTimeout, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.Store.GetForUpdate(ctx, tx, id); err != nil {
			return err
		}
		return s.Store.Delete(ctx, tx, id)
	})
	if err == nil && s.Notifier != nil {
		s.Notifier.Close(id)
	}
	release()
	if err != nil {
		return err
	}

	s.Logger.LogDatabase("DELETE", "events", fmt.Sprintf("event %d deleted by user %d", id, actor.ID))
	s.publish(ctx, id, models.EventDeleted, actor)
	return nil
}

// publish runs after commit with the event lock released; failures are
// logged and never undo the write.
func (s *Service) publish(ctx context.Context, id int64, action string, actor *models.User) {
	if s.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout())
	defer cancel()

	change := models.EventChanged{EventID: id, Action: action, ActorID: actor.ID, At: time.Now().UTC()}
	if err := s.Publisher.PublishEventChanged(ctx, change); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("event %d %s not published: %v", id, action, err))
	}
}

func validateInput(in models.EventInput) error {
	if err := models.Validate(in); err != nil {
		return err
	}
	return models.ValidatePrice(*in.Price)
}
