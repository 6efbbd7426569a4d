package events

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-booking/internal/database/dbtest"
	eventdb "ms-booking/internal/events/db"
	"ms-booking/internal/lock"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEventChanged(ctx context.Context, change models.EventChanged) error {
	return m.Called(ctx, change).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(a models.Availability) { m.Called(a) }
func (m *MockNotifier) Close(eventID int64)          { m.Called(eventID) }

func newTestService(t *testing.T) (*Service, *bun.DB, *models.User) {
	bunDB := dbtest.New(t)
	admin := dbtest.User(t, bunDB, "admin@example.com", true)
	svc := NewService(bunDB, eventdb.New(bunDB), lock.NewLocal(lock.Options{Wait: time.Second}), logger.NewWriterLogger(io.Discard))
	return svc, bunDB, admin
}

func input(title string, capacity int) models.EventInput {
	minutes := 120
	price := decimal.RequireFromString("25.50")
	return models.EventInput{
		Title:           title,
		Description:     "talks",
		TimeMinutes:     &minutes,
		Price:           &price,
		MaximumCapacity: capacity,
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _, admin := newTestService(t)
	pub := new(MockPublisher)
	svc.Publisher = pub
	pub.On("PublishEventChanged", mock.Anything, mock.MatchedBy(func(c models.EventChanged) bool {
		return c.Action == models.EventCreated && c.ActorID == admin.ID
	})).Return(nil).Once()

	event, err := svc.Create(context.Background(), admin, input("GopherCon", 10))
	require.NoError(t, err)
	pub.AssertExpectations(t)

	assert.NotZero(t, event.ID)
	assert.Equal(t, admin.ID, event.UserID)
	assert.Zero(t, event.TotalBooked)
	assert.Equal(t, models.DefaultLocation, event.Location)
	assert.Equal(t, models.ModeOnline, event.Mode)
	assert.Nil(t, event.Date)

	got, err := svc.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.50", got.Price.StringFixed(2))
}

func TestCreateValidation(t *testing.T) {
	svc, _, admin := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, input("No seats", 0))
	assert.ErrorIs(t, err, models.ErrValidation)

	in := input("Cheap", 5)
	negative := decimal.RequireFromString("-1")
	in.Price = &negative
	_, err = svc.Create(ctx, admin, in)
	assert.ErrorIs(t, err, models.ErrValidation)

	in = input("Precise", 5)
	precise := decimal.RequireFromString("9.999")
	in.Price = &precise
	_, err = svc.Create(ctx, admin, in)
	assert.ErrorIs(t, err, models.ErrValidation)

	in = input("Hybrid", 5)
	in.Mode = "hybrid"
	_, err = svc.Create(ctx, admin, in)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Create(ctx, nil, input("Anon", 5))
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	events, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpdateMergesPartialFields(t *testing.T) {
	svc, _, admin := newTestService(t)
	ctx := context.Background()
	event, err := svc.Create(ctx, admin, input("Before", 10))
	require.NoError(t, err)

	location := "Berlin"
	updated, err := svc.Update(ctx, admin, event.ID, models.EventPatch{Location: &location})
	require.NoError(t, err)

	assert.Equal(t, "Berlin", updated.Location)
	assert.Equal(t, "Before", updated.Title)
	assert.Equal(t, "talks", updated.Description)
	assert.Equal(t, 10, updated.MaximumCapacity)
}

func TestReplaceOverwritesAndClearsDate(t *testing.T) {
	svc, _, admin := newTestService(t)
	ctx := context.Background()

	in := input("Dated", 10)
	when := time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)
	in.Date = &when
	in.Location = "Pune"
	event, err := svc.Create(ctx, admin, in)
	require.NoError(t, err)
	require.NotNil(t, event.Date)

	replaced, err := svc.Replace(ctx, admin, event.ID, input("Undated", 20))
	require.NoError(t, err)
	assert.Equal(t, "Undated", replaced.Title)
	assert.Nil(t, replaced.Date)
	assert.Equal(t, models.DefaultLocation, replaced.Location)
	assert.Equal(t, 20, replaced.MaximumCapacity)
}

func TestCapacityCannotDropBelowBooked(t *testing.T) {
	svc, bunDB, admin := newTestService(t)
	ctx := context.Background()
	event, err := svc.Create(ctx, admin, input("Busy", 10))
	require.NoError(t, err)
	_, err = bunDB.NewUpdate().Model((*models.Event)(nil)).Set("total_booked = 6").Where("id = ?", event.ID).Exec(ctx)
	require.NoError(t, err)

	four := 4
	_, err = svc.Update(ctx, admin, event.ID, models.EventPatch{MaximumCapacity: &four})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 10, dbtest.Reload(t, bunDB, event.ID).MaximumCapacity)

	six := 6
	updated, err := svc.Update(ctx, admin, event.ID, models.EventPatch{MaximumCapacity: &six})
	require.NoError(t, err)
	assert.Zero(t, updated.Remaining())
	assert.Equal(t, 6, updated.TotalBooked)
}

func TestUpdateUnknownEvent(t *testing.T) {
	svc, _, admin := newTestService(t)
	title := "x"
	_, err := svc.Update(context.Background(), admin, 404, models.EventPatch{Title: &title})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, 404), models.ErrNotFound)
}

func TestDeleteCascadesAndNotifies(t *testing.T) {
	svc, bunDB, admin := newTestService(t)
	ctx := context.Background()
	user := dbtest.User(t, bunDB, "user@example.com", false)
	event, err := svc.Create(ctx, admin, input("Doomed", 10))
	require.NoError(t, err)
	_, err = bunDB.NewInsert().Model(&models.Booking{EventID: event.ID, UserID: user.ID, Quantity: 2}).Exec(ctx)
	require.NoError(t, err)

	n := new(MockNotifier)
	n.On("Close", event.ID).Once()
	svc.Notifier = n

	require.NoError(t, svc.Delete(ctx, admin, event.ID))
	n.AssertExpectations(t)

	_, err = svc.Get(ctx, event.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, rows := dbtest.LedgerSum(t, bunDB, event.ID)
	assert.Zero(t, rows)
}

func TestPublishFailureDoesNotUndoWrite(t *testing.T) {
	svc, _, admin := newTestService(t)
	pub := new(MockPublisher)
	svc.Publisher = pub
	pub.On("PublishEventChanged", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	event, err := svc.Create(context.Background(), admin, input("Still here", 3))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), event.ID)
	assert.NoError(t, err)
}

type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) PublishEventChanged(ctx context.Context, _ models.EventChanged) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	p.started <- struct{}{}
	<-p.release
	return nil
}

func TestPublishRunsAfterLockRelease(t *testing.T) {
	svc, _, admin := newTestService(t)
	event, err := svc.Create(context.Background(), admin, input("Meetup", 10))
	require.NoError(t, err)

	pub := &blockingPublisher{started: make(chan struct{}, 2), release: make(chan struct{})}
	svc.Publisher = pub

	errs := make(chan error, 2)
	update := func(title string) {
		_, err := svc.Update(context.Background(), admin, event.ID, models.EventPatch{Title: &title})
		errs <- err
	}

	go update("First")
	select {
	case <-pub.started:
	case err := <-errs:
		t.Fatalf("first write returned before publishing: %v", err)
	}

	go update("Second")
	select {
	case <-pub.started:
	case err := <-errs:
		t.Fatalf("second update returned before publishing: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("second update never committed")
	}

	close(pub.release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	got, err := svc.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)
}
