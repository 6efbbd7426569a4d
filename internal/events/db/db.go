package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/database"
	"ms-booking/internal/models"
)

// DB is the Event Catalog store. Every method takes the bun.IDB to run on so
// callers can keep reads and writes inside one transaction.
type DB struct {
	Bun *bun.DB
}

func New(db *bun.DB) *DB {
	return &DB{Bun: db}
}

func (d *DB) Insert(ctx context.Context, idb bun.IDB, event *models.Event) error {
	now := time.Now().UTC()
	event.CreatedAt, event.UpdatedAt = now, now
	_, err := idb.NewInsert().Model(event).Returning("*").Exec(ctx)
	return err
}

func (d *DB) GetByID(ctx context.Context, idb bun.IDB, id int64) (*models.Event, error) {
	var event models.Event
	err := idb.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("event", id)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetForUpdate loads the event and, on postgres, row-locks it until the transaction ends.
func (d *DB) GetForUpdate(ctx context.Context, idb bun.IDB, id int64) (*models.Event, error) {
	var event models.Event
	q := idb.NewSelect().
		Model(&event).
		Where("e.id = ?", id)
	if database.IsPostgres(idb) {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("event", id)
	}
	if err != nil {
		return nil, database.Translate(err)
	}
	return &event, nil
}

// List returns every event ordered by title.
func (d *DB) List(ctx context.Context, idb bun.IDB) ([]models.Event, error) {
	var events []models.Event
	err := idb.NewSelect().
		Model(&events).
		OrderExpr("e.title ASC, e.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Update writes the given columns of event.
func (d *DB) Update(ctx context.Context, idb bun.IDB, event *models.Event, columns ...string) error {
	event.UpdatedAt = time.Now().UTC()
	columns = append(columns, "updated_at")
	res, err := idb.NewUpdate().
		Model(event).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOne(res, event.ID)
}

func (d *DB) SetTotalBooked(ctx context.Context, idb bun.IDB, id int64, total int) error {
	res, err := idb.NewUpdate().
		Model((*models.Event)(nil)).
		Set("total_booked = ?", total).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOne(res, id)
}

// Delete removes the event together with its ledger rows.
func (d *DB) Delete(ctx context.Context, idb bun.IDB, id int64) error {
	if _, err := idb.NewDelete().
		Model((*models.Booking)(nil)).
		Where("event_id = ?", id).
		Exec(ctx); err != nil {
		return err
	}

	res, err := idb.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOne(res, id)
}

func (d *DB) CountByOwner(ctx context.Context, idb bun.IDB, userID int64) (int, error) {
	return idb.NewSelect().
		Model((*models.Event)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
}

func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NotFound("event", id)
	}
	return nil
}
