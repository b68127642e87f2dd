// Package interest computes daily interest accruals over wallet balances.
//
// The computation is advisory: it writes an audit record per wallet per day
// and never mutates balances. Crediting accrued interest is a separate
// transfer from a pool wallet, driven outside this service.
package interest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kudipay/walletd/internal/config"
	"github.com/kudipay/walletd/internal/domain"
	"github.com/kudipay/walletd/internal/domain/money"
)

// WalletStore is the read surface the calculator needs.
type WalletStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
}

// Store persists calculation audit records.
type Store interface {
	Insert(ctx context.Context, calc *domain.InterestCalculation) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]*domain.InterestCalculation, error)
}

// Calculator derives one day of interest from a wallet's current balance.
type Calculator struct {
	wallets WalletStore
	store   Store
	logger  *slog.Logger

	annualRate  decimal.Decimal
	dailyFactor decimal.Decimal
}

// NewCalculator builds a Calculator from configuration. Fails if the
// configured rate is not a valid decimal or the day count is not positive.
func NewCalculator(wallets WalletStore, store Store, cfg *config.InterestConfig, logger *slog.Logger) (*Calculator, error) {
	rate, err := decimal.NewFromString(cfg.DefaultAnnualRate)
	if err != nil {
		return nil, fmt.Errorf("invalid annual rate %q: %w", cfg.DefaultAnnualRate, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("annual rate must not be negative, got %s", rate)
	}
	if cfg.DaysInYear <= 0 {
		return nil, fmt.Errorf("days in year must be positive, got %d", cfg.DaysInYear)
	}

	// The per-day factor is fixed for the life of the calculator, computed
	// once at the working precision.
	dailyFactor := rate.DivRound(decimal.NewFromInt(int64(cfg.DaysInYear)), money.InternalScale)

	return &Calculator{
		wallets:     wallets,
		store:       store,
		logger:      logger,
		annualRate:  rate,
		dailyFactor: dailyFactor,
	}, nil
}

// DailyInterest returns one day of interest on the given balance, rounded
// to scale 2 with banker's rounding.
func (c *Calculator) DailyInterest(balance money.Money) money.Money {
	return balance.Mul(c.dailyFactor)
}

// CalculateForWallet computes and records the interest accrued by a wallet
// for the given calendar day. The audit table's unique index on
// (wallet_id, calculated_for) rejects a second run for the same day.
func (c *Calculator) CalculateForWallet(ctx context.Context, walletID uuid.UUID, day time.Time) (*domain.InterestCalculation, error) {
	w, err := c.wallets.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}

	calc := &domain.InterestCalculation{
		ID:            uuid.New(),
		WalletID:      w.ID,
		Balance:       w.Balance,
		AnnualRate:    c.annualRate,
		DailyInterest: c.DailyInterest(w.Balance),
		CalculatedFor: day.UTC().Truncate(24 * time.Hour),
		CreatedAt:     time.Now().UTC(),
	}

	if err := c.store.Insert(ctx, calc); err != nil {
		return nil, fmt.Errorf("failed to record interest for wallet %s: %w", walletID, err)
	}

	c.logger.Info("interest calculated",
		slog.String("wallet_id", w.ID.String()),
		slog.String("balance", calc.Balance.String()),
		slog.String("daily_interest", calc.DailyInterest.String()),
		slog.Time("calculated_for", calc.CalculatedFor))

	return calc, nil
}

// History returns a wallet's most recent calculation records, newest first.
func (c *Calculator) History(ctx context.Context, walletID uuid.UUID, limit int) ([]*domain.InterestCalculation, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	return c.store.ListByWallet(ctx, walletID, limit)
}
