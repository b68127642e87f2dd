package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/kudipay/walletd/internal/domain/money"
)

// TransactionType is the kind of value movement a log row records.
type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeRefund     TransactionType = "REFUND"
)

// IsValid checks if the transaction type is a known value.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeRefund:
		return true
	default:
		return false
	}
}

// TransactionStatus is the state of one transfer attempt.
//
// Transitions:
//
//	(none) -> PENDING -> PROCESSING -> COMPLETED
//	                  \-> FAILED (from PENDING or PROCESSING)
//
// COMPLETED and FAILED are terminal. ROLLED_BACK is reserved.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusRolledBack TransactionStatus = "ROLLED_BACK"
)

// IsFinal reports whether no further transitions are allowed.
func (s TransactionStatus) IsFinal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusRolledBack
}

// TransactionLog is the durable record of one transfer attempt, keyed by the
// caller-chosen idempotency key. Exactly one row exists per key; rows are
// never deleted.
type TransactionLog struct {
	ID             uuid.UUID
	IdempotencyKey string
	Type           TransactionType
	FromWalletID   uuid.UUID
	ToWalletID     uuid.UUID
	Amount         money.Money
	Currency       string
	Status         TransactionStatus
	Description    string
	ErrorMessage   string
	Metadata       map[string]any
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
