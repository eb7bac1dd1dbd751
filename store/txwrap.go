package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// WithTx runs fn inside a transaction, committing on success and
// rolling back on error or panic. It is a simplified form of
// wavetermdev/waveterm's pkg/sstore/txwrap.go WithTx: this store has
// exactly one writer (spec.md §5) so there is no need for the
// nesting-via-context trick waveterm's version supports for its many
// concurrent callers.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (rtnErr error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if rtnErr != nil {
			tx.Rollback()
		} else {
			rtnErr = tx.Commit()
		}
	}()
	rtnErr = fn(tx)
	return rtnErr
}
