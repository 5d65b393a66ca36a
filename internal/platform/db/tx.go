package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// WithTx executes a function within a transaction using the RepeatableRead
// isolation level. Serialization failures surface as ConcurrencyConflict so
// exactly one of two racing transitions succeeds.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return TranslateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TranslateError(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// TranslateError maps PostgreSQL error codes onto the shared taxonomy.
// SQLSTATE 40001 (serialization_failure) and 40P01 (deadlock_detected) mean a
// concurrent writer won the row.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return shared.ConcurrencyConflictError("concurrent update, please retry")
		case "23505":
			return shared.ValidationError("duplicate entry")
		}
	}
	return err
}
