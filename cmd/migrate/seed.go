package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// seedData inserts a staff user and sample events. Existing rows are kept.
func seedData(ctx context.Context, db *bun.DB, adminEmail string, log *logger.Logger) error {
	admin := &models.User{Email: adminEmail, Name: "Administrator", IsActive: true, IsStaff: true}
	if _, err := db.NewInsert().Model(admin).On("CONFLICT (email) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := db.NewSelect().Model(admin).Where("email = ?", adminEmail).Scan(ctx); err != nil {
		return fmt.Errorf("reload admin: %w", err)
	}

	count, err := db.NewSelect().Model((*models.Event)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Info("SEED", fmt.Sprintf("%d events present, skipping sample events", count))
		return nil
	}

	date := time.Now().AddDate(0, 1, 0).UTC().Truncate(time.Hour)
	events := []models.Event{
		{
			UserID: admin.ID, Title: "Go Meetup", Description: "Lightning talks and pizza.",
			TimeMinutes: 120, Date: &date, Price: decimal.RequireFromString("0.00"), MaximumCapacity: 50,
			Location: "Bengaluru", Mode: models.ModeOffline,
		},
		{
			UserID: admin.ID, Title: "Summer Fest", Description: "Annual summer music festival.",
			TimeMinutes: 480, Price: decimal.RequireFromString("49.99"), MaximumCapacity: 500,
			Location: models.DefaultLocation, Mode: models.ModeOffline,
		},
		{
			UserID: admin.ID, Title: "Postgres Internals Webinar", Link: "https://example.com/webinar",
			TimeMinutes: 60, Price: decimal.RequireFromString("5.00"), MaximumCapacity: 1000,
			Location: models.DefaultLocation, Mode: models.ModeOnline,
		},
	}
	if _, err := db.NewInsert().Model(&events).Exec(ctx); err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	log.Info("SEED", fmt.Sprintf("✅ Seeded admin %s and %d events", adminEmail, len(events)))
	return nil
}
