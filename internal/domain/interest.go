package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kudipay/walletd/internal/domain/money"
)

// InterestCalculation is the audit record written for every daily interest
// computation. One row per wallet per calculation date.
type InterestCalculation struct {
	ID            uuid.UUID
	WalletID      uuid.UUID
	Balance       money.Money
	AnnualRate    decimal.Decimal
	DailyInterest money.Money
	CalculatedFor time.Time
	CreatedAt     time.Time
}
