// Package views assembles the read-only response shapes for events and bookings.
package views

import (
	"time"

	"ms-booking/internal/models"
)

// BookingView is a ledger row nested under its event.
type BookingView struct {
	ID        int64 `json:"id"`
	Event     int64 `json:"event"`
	EventUser int64 `json:"event_user"`
	Quantity  int   `json:"quantity"`
}

type EventView struct {
	ID              int64            `json:"id"`
	User            int64            `json:"user"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	TimeMinutes     int              `json:"time_minutes"`
	Date            *time.Time       `json:"date"`
	Price           string           `json:"price"`
	MaximumCapacity int              `json:"maximum_capacity"`
	TotalBooked     int              `json:"total_booked"`
	Remaining       int              `json:"remaining"`
	Link            string           `json:"link"`
	Location        string           `json:"location"`
	Mode            models.EventMode `json:"mode"`
	Booking         []BookingView    `json:"booking"`
}

// BookingDetail is a booking with its event's title, date, duration and location.
type BookingDetail struct {
	ID       int64      `json:"id"`
	Event    int64      `json:"event"`
	Quantity int        `json:"quantity"`
	Title    string     `json:"title"`
	Date     *time.Time `json:"date"`
	Duration int        `json:"duration"`
	Location string     `json:"location"`
}

// Summary reconciles an event's cached counter against its ledger.
type Summary struct {
	EventID         int64 `json:"event_id"`
	MaximumCapacity int   `json:"maximum_capacity"`
	TotalBooked     int   `json:"total_booked"`
	Remaining       int   `json:"remaining"`
	LedgerSum       int   `json:"ledger_sum"`
	BookingCount    int   `json:"booking_count"`
	Consistent      bool  `json:"consistent"`
}

// PassCheck is the result of verifying a scanned pass. Quantity is what the
// pass was issued for; CurrentQuantity is the ledger value now.
type PassCheck struct {
	BookingID       int64     `json:"booking_id"`
	Event           int64     `json:"event"`
	EventUser       int64     `json:"event_user"`
	Quantity        int       `json:"quantity"`
	CurrentQuantity int       `json:"current_quantity"`
	IssuedAt        time.Time `json:"issued_at"`
}

func NewPassCheck(b models.Booking, issuedQuantity int, issuedAt time.Time) PassCheck {
	return PassCheck{
		BookingID:       b.ID,
		Event:           b.EventID,
		EventUser:       b.UserID,
		Quantity:        issuedQuantity,
		CurrentQuantity: b.Quantity,
		IssuedAt:        issuedAt,
	}
}

func NewBookingView(b models.Booking) BookingView {
	return BookingView{ID: b.ID, Event: b.EventID, EventUser: b.UserID, Quantity: b.Quantity}
}

func NewEventView(e models.Event, bookings []models.Booking) EventView {
	nested := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		nested = append(nested, NewBookingView(b))
	}
	return EventView{
		ID:              e.ID,
		User:            e.UserID,
		Title:           e.Title,
		Description:     e.Description,
		TimeMinutes:     e.TimeMinutes,
		Date:            e.Date,
		Price:           e.Price.StringFixed(models.PricePlaces),
		MaximumCapacity: e.MaximumCapacity,
		TotalBooked:     e.TotalBooked,
		Remaining:       e.Remaining(),
		Link:            e.Link,
		Location:        e.Location,
		Mode:            e.Mode,
		Booking:         nested,
	}
}

// NewBookingDetail fails with NotFound when the booking's event has vanished.
func NewBookingDetail(b models.Booking) (BookingDetail, error) {
	if b.Event == nil {
		return BookingDetail{}, models.NotFound("event", b.EventID)
	}
	return BookingDetail{
		ID:       b.ID,
		Event:    b.EventID,
		Quantity: b.Quantity,
		Title:    b.Event.Title,
		Date:     b.Event.Date,
		Duration: b.Event.TimeMinutes,
		Location: b.Event.Location,
	}, nil
}

// NewBookingDetails skips rows whose event disappeared between query and render.
func NewBookingDetails(bookings []models.Booking) []BookingDetail {
	out := make([]BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		if d, err := NewBookingDetail(b); err == nil {
			out = append(out, d)
		}
	}
	return out
}

func NewSummary(e models.Event, ledgerSum, bookingCount int) Summary {
	return Summary{
		EventID:         e.ID,
		MaximumCapacity: e.MaximumCapacity,
		TotalBooked:     e.TotalBooked,
		Remaining:       e.Remaining(),
		LedgerSum:       ledgerSum,
		BookingCount:    bookingCount,
		Consistent:      ledgerSum == e.TotalBooked && e.TotalBooked <= e.MaximumCapacity,
	}
}
