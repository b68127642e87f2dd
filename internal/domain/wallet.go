// Package domain holds the plain value records persisted by the service.
//
// Records carry no behavior beyond validation helpers: rows are owned by the
// stores, the coordinator works on short-lived copies, and every mutation
// goes through an explicit transaction handle.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/kudipay/walletd/internal/domain/money"
)

// WalletType classifies the account holder.
type WalletType string

const (
	WalletTypePool     WalletType = "POOL"
	WalletTypeUser     WalletType = "USER"
	WalletTypeMerchant WalletType = "MERCHANT"
)

// IsValid checks if the wallet type is a known value.
func (t WalletType) IsValid() bool {
	switch t {
	case WalletTypePool, WalletTypeUser, WalletTypeMerchant:
		return true
	default:
		return false
	}
}

// WalletStatus is the operational status of a wallet.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "ACTIVE"
	WalletStatusSuspended WalletStatus = "SUSPENDED"
	WalletStatusClosed    WalletStatus = "CLOSED"
)

// IsValid checks if the wallet status is a known value.
func (s WalletStatus) IsValid() bool {
	switch s {
	case WalletStatusActive, WalletStatusSuspended, WalletStatusClosed:
		return true
	default:
		return false
	}
}

// Wallet is a value-bearing account.
//
// Invariants (enforced by the transfer coordinator and the schema):
//   - Balance >= 0 at every committed state
//   - Version is monotonically non-decreasing, starting at 1
//   - only ACTIVE wallets may be the source or destination of a transfer
type Wallet struct {
	ID        uuid.UUID
	OwnerID   string
	Type      WalletType
	Balance   money.Money
	Currency  string
	Status    WalletStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the wallet may take part in a transfer.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}
