package views

import (
	"context"

	"github.com/uptrace/bun"

	"ms-booking/internal/database"
	"ms-booking/internal/models"
)

type EventReader interface {
	List(ctx context.Context, idb bun.IDB) ([]models.Event, error)
	GetByID(ctx context.Context, idb bun.IDB, id int64) (*models.Event, error)
}

type LedgerReader interface {
	ListForEvents(ctx context.Context, idb bun.IDB, eventIDs []int64, userID int64) (map[int64][]models.Booking, error)
	Totals(ctx context.Context, idb bun.IDB, eventID int64) (int, int, error)
}

// Viewer scopes nested bookings: admins see all of them, users only their own.
type Viewer struct {
	UserID int64
	Admin  bool
}

func (v Viewer) scope() int64 {
	if v.Admin {
		return 0
	}
	return v.UserID
}

type Query struct {
	DB     *bun.DB
	Events EventReader
	Ledger LedgerReader
}

func NewQuery(db *bun.DB, events EventReader, ledger LedgerReader) *Query {
	return &Query{DB: db, Events: events, Ledger: ledger}
}

// EventList returns every event ordered by title with nested bookings.
func (q *Query) EventList(ctx context.Context, viewer Viewer) ([]EventView, error) {
	var out []EventView
	err := database.RunInTx(ctx, q.DB, 0, func(ctx context.Context, tx bun.Tx) error {
		events, err := q.Events.List(ctx, tx)
		if err != nil {
			return err
		}

		ids := make([]int64, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		bookings, err := q.Ledger.ListForEvents(ctx, tx, ids, viewer.scope())
		if err != nil {
			return err
		}

		out = make([]EventView, 0, len(events))
		for _, e := range events {
			out = append(out, NewEventView(e, bookings[e.ID]))
		}
		return nil
	})
	return out, err
}

func (q *Query) Event(ctx context.Context, id int64, viewer Viewer) (*EventView, error) {
	var out *EventView
	err := database.RunInTx(ctx, q.DB, 0, func(ctx context.Context, tx bun.Tx) error {
		event, err := q.Events.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		bookings, err := q.Ledger.ListForEvents(ctx, tx, []int64{id}, viewer.scope())
		if err != nil {
			return err
		}
		v := NewEventView(*event, bookings[id])
		out = &v
		return nil
	})
	return out, err
}

// Summary reads the counter and the ledger in one transaction.
func (q *Query) Summary(ctx context.Context, id int64) (*Summary, error) {
	var out *Summary
	err := database.RunInTx(ctx, q.DB, 0, func(ctx context.Context, tx bun.Tx) error {
		event, err := q.Events.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		sum, count, err := q.Ledger.Totals(ctx, tx, id)
		if err != nil {
			return err
		}
		s := NewSummary(*event, sum, count)
		out = &s
		return nil
	})
	return out, err
}
