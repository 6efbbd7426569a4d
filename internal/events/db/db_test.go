package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/database/dbtest"
	"ms-booking/internal/models"
)

func TestListOrderedByTitle(t *testing.T) {
	bunDB := dbtest.New(t)
	admin := dbtest.User(t, bunDB, "admin@example.com", true)
	dbtest.Event(t, bunDB, admin, "Zeta", 5)
	dbtest.Event(t, bunDB, admin, "Alpha", 5)
	dbtest.Event(t, bunDB, admin, "Mid", 5)

	d := New(bunDB)
	events, err := d.List(context.Background(), bunDB)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, []string{events[0].Title, events[1].Title, events[2].Title})
}

func TestGetForUpdateAndTotals(t *testing.T) {
	ctx := context.Background()
	bunDB := dbtest.New(t)
	admin := dbtest.User(t, bunDB, "admin@example.com", true)
	event := dbtest.Event(t, bunDB, admin, "Gophercon", 10)

	d := New(bunDB)
	got, err := d.GetForUpdate(ctx, bunDB, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.MaximumCapacity)
	assert.Equal(t, "10.00", got.Price.StringFixed(2))

	require.NoError(t, d.SetTotalBooked(ctx, bunDB, event.ID, 7))
	assert.Equal(t, 7, dbtest.Reload(t, bunDB, event.ID).TotalBooked)

	_, err = d.GetForUpdate(ctx, bunDB, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, d.SetTotalBooked(ctx, bunDB, 999, 1), models.ErrNotFound)
}

func TestUpdateOnlyTouchesGivenColumns(t *testing.T) {
	ctx := context.Background()
	bunDB := dbtest.New(t)
	admin := dbtest.User(t, bunDB, "admin@example.com", true)
	event := dbtest.Event(t, bunDB, admin, "Before", 10)

	d := New(bunDB)
	require.NoError(t, d.SetTotalBooked(ctx, bunDB, event.ID, 4))

	// stale copy still says total_booked=0; it must not be written back
	event.Title = "After"
	require.NoError(t, d.Update(ctx, bunDB, event, "title"))

	got := dbtest.Reload(t, bunDB, event.ID)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, 4, got.TotalBooked)
}

func TestDeleteCascadesBookings(t *testing.T) {
	ctx := context.Background()
	bunDB := dbtest.New(t)
	admin := dbtest.User(t, bunDB, "admin@example.com", true)
	user := dbtest.User(t, bunDB, "user@example.com", false)
	doomed := dbtest.Event(t, bunDB, admin, "Doomed", 10)
	kept := dbtest.Event(t, bunDB, admin, "Kept", 10)

	for _, b := range []*models.Booking{
		{EventID: doomed.ID, UserID: user.ID, Quantity: 2},
		{EventID: doomed.ID, UserID: admin.ID, Quantity: 1},
		{EventID: kept.ID, UserID: user.ID, Quantity: 3},
	} {
		_, err := bunDB.NewInsert().Model(b).Exec(ctx)
		require.NoError(t, err)
	}

	d := New(bunDB)
	require.NoError(t, d.Delete(ctx, bunDB, doomed.ID))

	_, err := d.GetByID(ctx, bunDB, doomed.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	sum, rows := dbtest.LedgerSum(t, bunDB, doomed.ID)
	assert.Zero(t, sum)
	assert.Zero(t, rows)

	sum, rows = dbtest.LedgerSum(t, bunDB, kept.ID)
	assert.Equal(t, 3, sum)
	assert.Equal(t, 1, rows)

	assert.ErrorIs(t, d.Delete(ctx, bunDB, doomed.ID), models.ErrNotFound)
}

func TestCountByOwner(t *testing.T) {
	bunDB := dbtest.New(t)
	admin := dbtest.User(t, bunDB, "admin@example.com", true)
	other := dbtest.User(t, bunDB, "other@example.com", true)
	dbtest.Event(t, bunDB, admin, "One", 1)
	dbtest.Event(t, bunDB, admin, "Two", 1)

	d := New(bunDB)
	n, err := d.CountByOwner(context.Background(), bunDB, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = d.CountByOwner(context.Background(), bunDB, other.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
