package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrConcurrentModification is returned when a transaction loses a
// serialization conflict and the caller should retry.
var ErrConcurrentModification = errors.New("concurrent modification detected, please retry")

// TxRunner executes a function inside a database transaction. A
// non-zero lockKey takes a transaction-scoped advisory lock before fn
// runs, serializing all runners that use the same key.
type TxRunner interface {
	WithinTx(ctx context.Context, lockKey int64, fn func(tx *sql.Tx) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewTxRunner(database *sql.DB) TxRunner {
	return &sqlTxRunner{db: database}
}

func (r *sqlTxRunner) WithinTx(ctx context.Context, lockKey int64, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = mapTxError(fmt.Errorf("failed to commit transaction: %w", cErr))
		}
	}()

	if lockKey != 0 {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
			err = fmt.Errorf("failed to acquire advisory lock %d: %w", lockKey, err)
			return err
		}
	}

	if err = fn(tx); err != nil {
		return mapTxError(err)
	}
	return nil
}

func mapTxError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "40001" {
		return ErrConcurrentModification
	}
	return err
}
