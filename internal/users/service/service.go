package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"ms-booking/internal/database"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type UserStore interface {
	GetByEmail(ctx context.Context, idb bun.IDB, email string) (*models.User, error)
	GetByID(ctx context.Context, idb bun.IDB, id int64) (*models.User, error)
	Insert(ctx context.Context, idb bun.IDB, user *models.User) error
	List(ctx context.Context, idb bun.IDB) ([]models.User, error)
	Delete(ctx context.Context, idb bun.IDB, id int64) error
}

type OwnedEventCounter interface {
	CountByOwner(ctx context.Context, idb bun.IDB, userID int64) (int, error)
}

type BookingCounter interface {
	CountByUser(ctx context.Context, idb bun.IDB, userID int64) (int, error)
}

type Service struct {
	DB        *bun.DB
	Store     UserStore
	Events    OwnedEventCounter
	Bookings  BookingCounter
	AdminRole string
	Logger    *logger.Logger
}

func NewService(db *bun.DB, store UserStore, events OwnedEventCounter, bookings BookingCounter, adminRole string, log *logger.Logger) *Service {
	return &Service{DB: db, Store: store, Events: events, Bookings: bookings, AdminRole: adminRole, Logger: log}
}

// Resolve maps verified token claims to a user, creating one on first sight.
// Unknown or inactive users fail with ErrUnauthorized.
func (s *Service) Resolve(ctx context.Context, claims models.Claims) (*models.User, error) {
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", models.ErrUnauthorized)
	}

	user, err := s.Store.GetByEmail(ctx, s.DB, email)
	if errors.Is(err, models.ErrNotFound) {
		user, err = s.provision(ctx, email, claims)
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		s.Logger.LogSecurity("INACTIVE_USER", fmt.Sprintf("user %d (%s) rejected", user.ID, user.Email))
		return nil, fmt.Errorf("%w: user is inactive", models.ErrUnauthorized)
	}
	return user, nil
}

func (s *Service) provision(ctx context.Context, email string, claims models.Claims) (*models.User, error) {
	user := &models.User{
		Subject:  claims.Subject,
		Email:    email,
		Name:     claims.Name,
		IsActive: true,
		IsStaff:  s.AdminRole != "" && claims.HasRole(s.AdminRole),
	}
	if err := s.Store.Insert(ctx, s.DB, user); err != nil {
		// a concurrent request may have provisioned the same email
		if existing, getErr := s.Store.GetByEmail(ctx, s.DB, email); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("provision user: %w", err)
	}
	s.Logger.LogDatabase("INSERT", "users", fmt.Sprintf("provisioned user %d (%s), staff=%t", user.ID, email, user.IsStaff))
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.Store.List(ctx, s.DB)
}

// Delete removes a user that owns no events and holds no bookings.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return database.RunInTx(ctx, s.DB, 0, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.Store.GetByID(ctx, tx, id); err != nil {
			return err
		}

		owned, err := s.Events.CountByOwner(ctx, tx, id)
		if err != nil {
			return err
		}
		if owned > 0 {
			return fmt.Errorf("%w: user %d owns %d event(s)", models.ErrProtected, id, owned)
		}

		booked, err := s.Bookings.CountByUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if booked > 0 {
			return fmt.Errorf("%w: user %d holds %d booking(s)", models.ErrProtected, id, booked)
		}

		return s.Store.Delete(ctx, tx, id)
	})
}
