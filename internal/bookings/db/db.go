package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

// DB is the Booking Ledger: one row per (event, user) holding the merged quantity.
// It stores what it is told and never decides admission.
type DB struct {
	Bun *bun.DB
}

func New(db *bun.DB) *DB {
	return &DB{Bun: db}
}

// FindByUserAndEvent returns the caller's ledger row, or nil when there is none.
func (d *DB) FindByUserAndEvent(ctx context.Context, idb bun.IDB, userID, eventID int64) (*models.Booking, error) {
	var booking models.Booking
	err := idb.NewSelect().
		Model(&booking).
		Where("b.user_id = ?", userID).
		Where("b.event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Upsert creates the (event, user) row or overwrites its quantity.
func (d *DB) Upsert(ctx context.Context, idb bun.IDB, userID, eventID int64, quantity int) (*models.Booking, error) {
	existing, err := d.FindByUserAndEvent(ctx, idb, userID, eventID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		existing.Quantity = quantity
		existing.UpdatedAt = now
		_, err := idb.NewUpdate().
			Model(existing).
			Column("quantity", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		return existing, nil
	}

	booking := &models.Booking{
		EventID:   eventID,
		UserID:    userID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := idb.NewInsert().Model(booking).Exec(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

func (d *DB) GetByID(ctx context.Context, idb bun.IDB, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := idb.NewSelect().
		Model(&booking).
		Relation("Event").
		Where("b.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("booking", id)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListForUser returns the user's bookings with their events attached.
func (d *DB) ListForUser(ctx context.Context, idb bun.IDB, userID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := idb.NewSelect().
		Model(&bookings).
		Relation("Event").
		Where("b.user_id = ?", userID).
		OrderExpr("b.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListAll returns every booking. Privileged callers only.
func (d *DB) ListAll(ctx context.Context, idb bun.IDB) ([]models.Booking, error) {
	var bookings []models.Booking
	err := idb.NewSelect().
		Model(&bookings).
		Relation("Event").
		OrderExpr("b.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListForEvents groups ledger rows by event id. A zero userID means all users.
func (d *DB) ListForEvents(ctx context.Context, idb bun.IDB, eventIDs []int64, userID int64) (map[int64][]models.Booking, error) {
	out := make(map[int64][]models.Booking, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	var bookings []models.Booking
	q := idb.NewSelect().
		Model(&bookings).
		Where("b.event_id IN (?)", bun.In(eventIDs)).
		OrderExpr("b.id ASC")
	if userID != 0 {
		q = q.Where("b.user_id = ?", userID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	for _, b := range bookings {
		out[b.EventID] = append(out[b.EventID], b)
	}
	return out, nil
}

// Totals sums the ledger for one event.
func (d *DB) Totals(ctx context.Context, idb bun.IDB, eventID int64) (sum int, count int, err error) {
	var row struct {
		Sum   int `bun:"ledger_sum"`
		Count int `bun:"booking_count"`
	}
	err = idb.NewSelect().
		Model((*models.Booking)(nil)).
		ColumnExpr("COALESCE(SUM(b.quantity), 0) AS ledger_sum").
		ColumnExpr("COUNT(*) AS booking_count").
		Where("b.event_id = ?", eventID).
		Scan(ctx, &row)
	if err != nil {
		return 0, 0, err
	}
	return row.Sum, row.Count, nil
}

func (d *DB) CountByUser(ctx context.Context, idb bun.IDB, userID int64) (int, error) {
	return idb.NewSelect().
		Model((*models.Booking)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
}
