package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/models"
)

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	defer db.Close()

	assert.False(t, IsPostgres(db))

	user := &models.User{Email: "admin@example.com", IsActive: true}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&models.Booking{EventID: 1, UserID: user.ID, Quantity: 1}).Exec(ctx)
	require.NoError(t, err)

	// second row for the same (event, user) must violate the ledger index
	_, err = db.NewInsert().Model(&models.Booking{EventID: 1, UserID: user.ID, Quantity: 2}).Exec(ctx)
	assert.Error(t, err)

	// schema creation is idempotent
	require.NoError(t, CreateSchema(ctx, db))
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, Translate(nil))
	assert.ErrorIs(t, Translate(sql.ErrNoRows), models.ErrNotFound)
	assert.ErrorIs(t, Translate(&pq.Error{Code: "55P03"}), models.ErrBusy)
	assert.ErrorIs(t, Translate(fmt.Errorf("wrapped: %w", &pq.Error{Code: "40001"})), models.ErrBusy)

	other := errors.New("boom")
	assert.Equal(t, other, Translate(other))
	assert.False(t, IsLockTimeout(&pq.Error{Code: "23505"}))
}
