// Package dbtest provides throwaway SQLite stores and fixtures for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-booking/internal/database"
	"ms-booking/internal/models"
)

// New opens an isolated in-memory database with the schema applied.
func New(t testing.TB) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenSQLite(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func User(t testing.TB, db *bun.DB, email string, staff bool) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, IsActive: true, IsStaff: staff}
	_, err := db.NewInsert().Model(u).Exec(context.Background())
	require.NoError(t, err)
	return u
}

func Event(t testing.TB, db *bun.DB, owner *models.User, title string, capacity int) *models.Event {
	t.Helper()
	e := &models.Event{
		UserID:          owner.ID,
		Title:           title,
		TimeMinutes:     60,
		Price:           decimal.RequireFromString("10.00"),
		MaximumCapacity: capacity,
		Location:        models.DefaultLocation,
		Mode:            models.ModeOnline,
	}
	_, err := db.NewInsert().Model(e).Exec(context.Background())
	require.NoError(t, err)
	return e
}

// Reload reads the event back from the store.
func Reload(t testing.TB, db *bun.DB, id int64) *models.Event {
	t.Helper()
	var e models.Event
	require.NoError(t, db.NewSelect().Model(&e).Where("id = ?", id).Scan(context.Background()))
	return &e
}

// LedgerSum returns the summed quantity and row count for one event.
func LedgerSum(t testing.TB, db *bun.DB, eventID int64) (int, int) {
	t.Helper()
	var rows []models.Booking
	require.NoError(t, db.NewSelect().Model(&rows).Where("event_id = ?", eventID).Scan(context.Background()))
	sum := 0
	for _, r := range rows {
		sum += r.Quantity
	}
	return sum, len(rows)
}
