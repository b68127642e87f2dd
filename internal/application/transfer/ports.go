// Package transfer implements the idempotent wallet-to-wallet transfer
// coordinator. The coordinator owns the protocol ordering; storage and cache
// behavior live behind the narrow interfaces below so the protocol can be
// tested against fakes.
package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudipay/walletd/internal/domain"
	"github.com/kudipay/walletd/internal/domain/money"
)

// TxRunner executes a function inside a SERIALIZABLE database transaction.
type TxRunner interface {
	RunSerializable(ctx context.Context, fn func(pgx.Tx) error) error
}

// WalletStore is the wallet persistence surface the coordinator needs.
type WalletStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateVersioned(ctx context.Context, tx pgx.Tx, id uuid.UUID, newBalance money.Money, expectedVersion int64) (int64, error)
}

// TransactionLogStore persists the per-key transfer attempt record.
type TransactionLogStore interface {
	Insert(ctx context.Context, rec *domain.TransactionLog) error
	GetByKey(ctx context.Context, key string) (*domain.TransactionLog, error)
	MarkProcessing(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// LedgerStore appends and reads double-entry records.
type LedgerStore interface {
	AppendPair(ctx context.Context, tx pgx.Tx, debit, credit *domain.LedgerEntry) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*domain.LedgerEntry, error)
}

// LeaseCache is the distributed lease plus the serialized result cache.
type LeaseCache interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	PutResult(ctx context.Context, key string, data []byte, ttl time.Duration) error
	GetResult(ctx context.Context, key string) ([]byte, bool, error)
}
