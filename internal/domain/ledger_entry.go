package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/kudipay/walletd/internal/domain/money"
)

// LedgerEntryType marks which side of a double-entry pair a row is.
type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "DEBIT"
	LedgerEntryCredit LedgerEntryType = "CREDIT"
)

// LedgerEntry is one half of a double-entry pair.
//
// Invariant (global): every COMPLETED transaction has exactly two entries,
// one DEBIT on the source wallet and one CREDIT on the destination, with
// equal amounts and matching currency. BalanceAfter equals the wallet's
// committed balance immediately after the entry applies. Entries are
// append-only and never mutated.
type LedgerEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	WalletID      uuid.UUID
	Type          LedgerEntryType
	Amount        money.Money
	Currency      string
	BalanceAfter  money.Money
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
