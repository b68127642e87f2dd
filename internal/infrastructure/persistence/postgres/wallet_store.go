package postgres

import (
	"context"
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

const walletColumns = `id, owner_id, type, balance::text, currency, status, version, created_at, updated_at`

// WalletStore provides typed access to the wallets table.
//
// Balance mutation happens only through UpdateVersioned, which carries the
// optimistic version predicate. Balances travel as canonical decimal strings
// so no binary floating point touches the values.
type WalletStore struct {
	pool *pgxpool.Pool
}

// NewWalletStore creates a WalletStore over the pool.
func NewWalletStore(pool *pgxpool.Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Get loads a wallet without locking. Used by read-only surfaces.
func (s *WalletStore) Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(s.pool.QueryRow(ctx, query, id))
}

// LockForUpdate reads the wallet under a row-level exclusive lock inside the
// caller's transaction. Blocks until the lock is granted or ctx expires.
func (s *WalletStore) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, id))
}

// UpdateVersioned applies the new balance with the optimistic version
// predicate and returns the number of rows affected. Zero rows means the
// stored version moved underneath us.
func (s *WalletStore) UpdateVersioned(ctx context.Context, tx pgx.Tx, id uuid.UUID, newBalance money.Money, expectedVersion int64) (int64, error) {
	query := `
		UPDATE wallets
		SET balance = $2::numeric, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4
	`

	tag, err := tx.Exec(ctx, query, id, newBalance.String(), time.Now().UTC(), expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to update wallet %s: %w", id, err)
	}

	return tag.RowsAffected(), nil
}

// Insert creates a wallet row. Wallets are provisioned externally; the
// transfer core never creates them, but seeds and tests do.
func (s *WalletStore) Insert(ctx context.Context, w *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, owner_id, type, balance, currency, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		w.ID,
		w.OwnerID,
		string(w.Type),
		w.Balance.String(),
		w.Currency,
		string(w.Status),
		w.Version,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet: %w", err)
	}

	return nil
}

// ListByOwner returns the owner's wallets ordered by creation time.
func (s *WalletStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets by owner: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}

	return wallets, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w          domain.Wallet
		balanceStr string
		typeStr    string
		statusStr  string
	)

	err := row.Scan(
		&w.ID,
		&w.OwnerID,
		&typeStr,
		&balanceStr,
		&w.Currency,
		&statusStr,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	balance, err := money.Parse(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance in database: %w", err)
	}

	w.Type = domain.WalletType(typeStr)
	w.Status = domain.WalletStatus(statusStr)
	w.Balance = balance

	return &w, nil
}
