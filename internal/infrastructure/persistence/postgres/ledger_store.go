package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudipay/walletd/internal/domain"
	"github.com/kudipay/walletd/internal/domain/money"
)

const ledgerColumns = `id, transaction_id, wallet_id, type, amount::text, currency,
	balance_after::text, description, created_at, updated_at`

// LedgerStore appends double-entry pairs to the append-only ledger_entries
// table. Entries are only ever written inside a transfer's serializable
// transaction and never mutated afterwards.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a LedgerStore over the pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// AppendPair inserts the debit and credit halves of one transfer inside the
// caller's transaction. The balance check is a programming-error guard: a
// mismatched pair means the coordinator built the entries wrong, not that
// the request was bad.
func (s *LedgerStore) AppendPair(ctx context.Context, tx pgx.Tx, debit, credit *domain.LedgerEntry) error {
	if err := validatePair(debit, credit); err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_entries (
			id, transaction_id, wallet_id, type, amount, currency,
			balance_after, description, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric, $8, $9, $10)
	`

	for _, entry := range []*domain.LedgerEntry{debit, credit} {
		_, err := tx.Exec(ctx, query,
			entry.ID,
			entry.TransactionID,
			entry.WalletID,
			string(entry.Type),
			entry.Amount.String(),
			entry.Currency,
			entry.BalanceAfter.String(),
			entry.Description,
			entry.CreatedAt,
			entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s ledger entry: %w", entry.Type, err)
		}
	}

	return nil
}

// ListByTransaction returns the entries for one transaction.
// Used to reconstruct a historical Result on idempotent replay.
func (s *LedgerStore) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE transaction_id = $1 ORDER BY type ASC`

	rows, err := s.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}

// ListByWallet returns a wallet's entries, newest first.
func (s *LedgerStore) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries by wallet: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}

func validatePair(debit, credit *domain.LedgerEntry) error {
	if debit.Type != domain.LedgerEntryDebit || credit.Type != domain.LedgerEntryCredit {
		return fmt.Errorf("ledger pair has wrong sides: %s/%s", debit.Type, credit.Type)
	}
	if debit.TransactionID != credit.TransactionID {
		return fmt.Errorf("ledger pair transaction mismatch: %s vs %s", debit.TransactionID, credit.TransactionID)
	}
	if !debit.Amount.Equal(credit.Amount) {
		return fmt.Errorf("ledger pair does not balance: debit %s vs credit %s", debit.Amount, credit.Amount)
	}
	if debit.Currency != credit.Currency {
		return fmt.Errorf("ledger pair currency mismatch: %s vs %s", debit.Currency, credit.Currency)
	}
	if !debit.Amount.IsPositive() {
		return fmt.Errorf("ledger pair amount must be positive, got %s", debit.Amount)
	}
	return nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		entry           domain.LedgerEntry
		amountStr       string
		balanceAfterStr string
		typeStr         string
		description     *string
	)

	err := row.Scan(
		&entry.ID,
		&entry.TransactionID,
		&entry.WalletID,
		&typeStr,
		&amountStr,
		&entry.Currency,
		&balanceAfterStr,
		&description,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	amount, err := money.Parse(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in database: %w", err)
	}

	balanceAfter, err := money.Parse(balanceAfterStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance_after in database: %w", err)
	}

	entry.Type = domain.LedgerEntryType(typeStr)
	entry.Amount = amount
	entry.BalanceAfter = balanceAfter
	if description != nil {
		entry.Description = *description
	}

	return &entry, nil
}
