package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type EventMode string

const (
	ModeOnline  EventMode = "online"
	ModeOffline EventMode = "offline"
)

const (
	DefaultLocation = "India"
	// price is stored as decimal(5,2)
	PriceMaxDigits = 5
	PricePlaces    = 2
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID              int64           `bun:"id,pk,autoincrement" json:"id"`
	UserID          int64           `bun:"user_id,notnull" json:"user_id"`
	Title           string          `bun:"title,notnull" json:"title"`
	Description     string          `bun:"description,notnull,default:''" json:"description"`
	TimeMinutes     int             `bun:"time_minutes,notnull" json:"time_minutes"`
	Date            *time.Time      `bun:"date" json:"date"`
	Price           decimal.Decimal `bun:"price,type:decimal(5,2),notnull" json:"price"`
	MaximumCapacity int             `bun:"maximum_capacity,notnull" json:"maximum_capacity"`
	TotalBooked     int             `bun:"total_booked,notnull,default:0" json:"total_booked"`
	Link            string          `bun:"link,notnull,default:''" json:"link"`
	Location        string          `bun:"location,notnull,default:'India'" json:"location"`
	Mode            EventMode       `bun:"mode,notnull,default:'online'" json:"mode"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Remaining is the capacity still available for admission.
func (e *Event) Remaining() int {
	if r := e.MaximumCapacity - e.TotalBooked; r > 0 {
		return r
	}
	return 0
}

// EventInput is the full event payload accepted by create and PUT.
type EventInput struct {
	Title           string           `json:"title" validate:"required,max=255"`
	Description     string           `json:"description"`
	TimeMinutes     *int             `json:"time_minutes" validate:"required,gte=0,lte=2147483647"`
	Date            *time.Time       `json:"date"`
	Price           *decimal.Decimal `json:"price" validate:"required"`
	MaximumCapacity int              `json:"maximum_capacity" validate:"required,gt=0,lte=2147483647"`
	Link            string           `json:"link" validate:"max=255"`
	Location        string           `json:"location" validate:"max=255"`
	Mode            EventMode        `json:"mode" validate:"omitempty,oneof=online offline"`
}

// Patch converts a full payload into a patch that sets every field.
func (in EventInput) Patch() EventPatch {
	p := EventPatch{
		Title:           &in.Title,
		Description:     &in.Description,
		TimeMinutes:     in.TimeMinutes,
		Price:           in.Price,
		MaximumCapacity: &in.MaximumCapacity,
		Link:            &in.Link,
		Location:        &in.Location,
		Mode:            &in.Mode,
		ClearDate:       in.Date == nil,
		Date:            in.Date,
	}
	if in.Location == "" {
		loc := DefaultLocation
		p.Location = &loc
	}
	if in.Mode == "" {
		mode := ModeOnline
		p.Mode = &mode
	}
	return p
}

// EventPatch carries a partial update: nil fields are left untouched.
type EventPatch struct {
	Title           *string          `json:"title" validate:"omitempty,min=1,max=255"`
	Description     *string          `json:"description"`
	TimeMinutes     *int             `json:"time_minutes" validate:"omitempty,gte=0,lte=2147483647"`
	Date            *time.Time       `json:"date"`
	Price           *decimal.Decimal `json:"price"`
	MaximumCapacity *int             `json:"maximum_capacity" validate:"omitempty,gt=0,lte=2147483647"`
	Link            *string          `json:"link" validate:"omitempty,max=255"`
	Location        *string          `json:"location" validate:"omitempty,max=255"`
	Mode            *EventMode       `json:"mode" validate:"omitempty,oneof=online offline"`

	// ClearDate resets the optional date to NULL (PUT without a date).
	ClearDate bool `json:"-"`
}

// Apply merges the patch into e and returns the names of the columns it touched.
func (p EventPatch) Apply(e *Event) []string {
	var cols []string
	if p.Title != nil {
		e.Title = *p.Title
		cols = append(cols, "title")
	}
	if p.Description != nil {
		e.Description = *p.Description
		cols = append(cols, "description")
	}
	if p.TimeMinutes != nil {
		e.TimeMinutes = *p.TimeMinutes
		cols = append(cols, "time_minutes")
	}
	if p.Date != nil {
		d := *p.Date
		e.Date = &d
		cols = append(cols, "date")
	} else if p.ClearDate {
		e.Date = nil
		cols = append(cols, "date")
	}
	if p.Price != nil {
		e.Price = *p.Price
		cols = append(cols, "price")
	}
	if p.MaximumCapacity != nil {
		e.MaximumCapacity = *p.MaximumCapacity
		cols = append(cols, "maximum_capacity")
	}
	if p.Link != nil {
		e.Link = *p.Link
		cols = append(cols, "link")
	}
	if p.Location != nil {
		e.Location = *p.Location
		cols = append(cols, "location")
	}
	if p.Mode != nil {
		e.Mode = *p.Mode
		cols = append(cols, "mode")
	}
	return cols
}
