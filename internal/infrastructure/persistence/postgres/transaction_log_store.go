package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudipay/walletd/internal/domain"
	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
	"github.com/kudipay/walletd/internal/domain/money"
)

const transactionLogColumns = `id, idempotency_key, type, from_wallet_id, to_wallet_id,
	amount::text, currency, status, description, error_message, metadata,
	completed_at, created_at, updated_at`

// TransactionLogStore provides typed access to the transaction_logs table.
//
// Rows are keyed by UNIQUE(idempotency_key) and never deleted; the unique
// constraint is the durable at-most-once guard behind the cache lease.
type TransactionLogStore struct {
	pool *pgxpool.Pool
}

// NewTransactionLogStore creates a TransactionLogStore over the pool.
func NewTransactionLogStore(pool *pgxpool.Pool) *TransactionLogStore {
	return &TransactionLogStore{pool: pool}
}

// Insert writes the durable-intent row. Returns ErrDuplicateKey if a row
// with the same idempotency key already exists.
func (s *TransactionLogStore) Insert(ctx context.Context, rec *domain.TransactionLog) error {
	metadata, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transaction_logs (
			id, idempotency_key, type, from_wallet_id, to_wallet_id,
			amount, currency, status, description, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.pool.Exec(ctx, query,
		rec.ID,
		rec.IdempotencyKey,
		string(rec.Type),
		rec.FromWalletID,
		rec.ToWalletID,
		rec.Amount.String(),
		rec.Currency,
		string(rec.Status),
		rec.Description,
		metadata,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, "transaction_logs_idempotency_key") {
			return domainerrors.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert transaction log: %w", err)
	}

	return nil
}

// GetByKey loads the log row for an idempotency key.
func (s *TransactionLogStore) GetByKey(ctx context.Context, key string) (*domain.TransactionLog, error) {
	query := `SELECT ` + transactionLogColumns + ` FROM transaction_logs WHERE idempotency_key = $1`
	return scanTransactionLog(s.pool.QueryRow(ctx, query, key))
}

// MarkProcessing advances the row to PROCESSING inside the caller's
// serializable transaction.
func (s *TransactionLogStore) MarkProcessing(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `UPDATE transaction_logs SET status = $2, updated_at = $3 WHERE id = $1`

	if _, err := tx.Exec(ctx, query, id, string(domain.TransactionStatusProcessing), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark transaction %s processing: %w", id, err)
	}

	return nil
}

// MarkCompleted advances the row to COMPLETED with its completion timestamp,
// inside the caller's serializable transaction.
func (s *TransactionLogStore) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedAt time.Time) error {
	query := `UPDATE transaction_logs SET status = $2, completed_at = $3, updated_at = $3 WHERE id = $1`

	if _, err := tx.Exec(ctx, query, id, string(domain.TransactionStatusCompleted), completedAt); err != nil {
		return fmt.Errorf("failed to mark transaction %s completed: %w", id, err)
	}

	return nil
}

// MarkFailed records the failure reason. Runs on the pool, outside any
// aborted transaction, so the FAILED status survives the rollback.
func (s *TransactionLogStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `UPDATE transaction_logs SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1`

	if _, err := s.pool.Exec(ctx, query, id, string(domain.TransactionStatusFailed), errorMessage, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark transaction %s failed: %w", id, err)
	}

	return nil
}

func scanTransactionLog(row pgx.Row) (*domain.TransactionLog, error) {
	var (
		rec          domain.TransactionLog
		amountStr    string
		typeStr      string
		statusStr    string
		description  *string
		errorMessage *string
		metadata     []byte
	)

	err := row.Scan(
		&rec.ID,
		&rec.IdempotencyKey,
		&typeStr,
		&rec.FromWalletID,
		&rec.ToWalletID,
		&amountStr,
		&rec.Currency,
		&statusStr,
		&description,
		&errorMessage,
		&metadata,
		&rec.CompletedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction log: %w", err)
	}

	amount, err := money.Parse(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in database: %w", err)
	}

	rec.Type = domain.TransactionType(typeStr)
	rec.Status = domain.TransactionStatus(statusStr)
	rec.Amount = amount
	if description != nil {
		rec.Description = *description
	}
	if errorMessage != nil {
		rec.ErrorMessage = *errorMessage
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("invalid metadata in database: %w", err)
		}
	}

	return &rec, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return data, nil
}
