package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func New(db *bun.DB) *DB {
	return &DB{Bun: db}
}

func (d *DB) GetByEmail(ctx context.Context, idb bun.IDB, email string) (*models.User, error) {
	var user models.User
	err := idb.NewSelect().
		Model(&user).
		Where("LOWER(u.email) = LOWER(?)", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetByID(ctx context.Context, idb bun.IDB, id int64) (*models.User, error) {
	var user models.User
	err := idb.NewSelect().
		Model(&user).
		Where("u.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) Insert(ctx context.Context, idb bun.IDB, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := idb.NewInsert().Model(user).Exec(ctx)
	return err
}

func (d *DB) List(ctx context.Context, idb bun.IDB) ([]models.User, error) {
	var users []models.User
	err := idb.NewSelect().
		Model(&users).
		OrderExpr("u.email ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (d *DB) Delete(ctx context.Context, idb bun.IDB, id int64) error {
	res, err := idb.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NotFound("user", id)
	}
	return nil
}
