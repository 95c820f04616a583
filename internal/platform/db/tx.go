package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs fn inside a repeatable-read transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead}
	if err := pgx.BeginTxFunc(ctx, pool, opts, fn); err != nil {
		return fmt.Errorf("platform/db: tx: %w", err)
	}
	return nil
}
