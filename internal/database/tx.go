package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// RunInTx runs fn in one transaction. On postgres the transaction waits at most
// lockTimeout for row locks; contention surfaces as models.ErrBusy.
// A cancelled ctx rolls the transaction back.
func RunInTx(ctx context.Context, db *bun.DB, lockTimeout time.Duration, fn func(ctx context.Context, tx bun.Tx) error) error {
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if IsPostgres(tx) && lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return fn(ctx, tx)
	})
	if IsLockTimeout(err) {
		return Translate(err)
	}
	return err
}
