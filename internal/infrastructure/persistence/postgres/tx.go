package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner opens database transactions and hands the explicit handle to the
// callback. Commit on nil error, rollback otherwise; rollback and re-panic
// on panic.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner creates a TxRunner over the pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunSerializable executes fn inside a SERIALIZABLE transaction.
func (r *TxRunner) RunSerializable(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

// Run executes fn inside a READ COMMITTED transaction.
func (r *TxRunner) Run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// PostgreSQL error codes used for branching.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == code
}

// IsUniqueViolation reports whether err is a UNIQUE constraint violation,
// optionally restricted to a named constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgUniqueViolation {
		return false
	}
	if constraintName != "" {
		return strings.Contains(pgErr.ConstraintName, constraintName)
	}
	return true
}

// IsSerializationFailure reports a SERIALIZABLE conflict or deadlock; the
// caller may retry the whole transaction.
func IsSerializationFailure(err error) bool {
	return isPgError(err, pgSerializationFailure) || isPgError(err, pgDeadlockDetected)
}

// IsCheckViolation reports a CHECK constraint violation (e.g. balance >= 0).
func IsCheckViolation(err error) bool {
	return isPgError(err, pgCheckViolation)
}

// IsForeignKeyViolation reports a FOREIGN KEY constraint violation.
func IsForeignKeyViolation(err error) bool {
	return isPgError(err, pgForeignKeyViolation)
}
