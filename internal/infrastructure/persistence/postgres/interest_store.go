package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kudipay/walletd/internal/domain"
	"github.com/kudipay/walletd/internal/domain/money"
)

// InterestStore persists the audit record for every daily interest
// computation. One row per wallet per calculation date, enforced by a
// unique index.
type InterestStore struct {
	pool *pgxpool.Pool
}

// NewInterestStore creates an InterestStore over the pool.
func NewInterestStore(pool *pgxpool.Pool) *InterestStore {
	return &InterestStore{pool: pool}
}

// Insert writes one calculation record.
func (s *InterestStore) Insert(ctx context.Context, calc *domain.InterestCalculation) error {
	query := `
		INSERT INTO interest_calculations (
			id, wallet_id, balance, annual_rate, daily_interest, calculated_for, created_at
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		calc.ID,
		calc.WalletID,
		calc.Balance.String(),
		calc.AnnualRate.String(),
		calc.DailyInterest.String(),
		calc.CalculatedFor,
		calc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interest calculation: %w", err)
	}

	return nil
}

// ListByWallet returns a wallet's calculation history, newest first.
func (s *InterestStore) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]*domain.InterestCalculation, error) {
	query := `
		SELECT id, wallet_id, balance::text, annual_rate::text, daily_interest::text, calculated_for, created_at
		FROM interest_calculations
		WHERE wallet_id = $1
		ORDER BY calculated_for DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interest calculations: %w", err)
	}
	defer rows.Close()

	var calcs []*domain.InterestCalculation
	for rows.Next() {
		calc, err := scanInterestCalculation(rows)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, calc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interest rows: %w", err)
	}

	return calcs, nil
}

func scanInterestCalculation(row pgx.Row) (*domain.InterestCalculation, error) {
	var (
		calc        domain.InterestCalculation
		balanceStr  string
		rateStr     string
		interestStr string
	)

	err := row.Scan(
		&calc.ID,
		&calc.WalletID,
		&balanceStr,
		&rateStr,
		&interestStr,
		&calc.CalculatedFor,
		&calc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan interest calculation: %w", err)
	}

	balance, err := money.Parse(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance in database: %w", err)
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid annual_rate in database: %w", err)
	}

	interest, err := money.Parse(interestStr)
	if err != nil {
		return nil, fmt.Errorf("invalid daily_interest in database: %w", err)
	}

	calc.Balance = balance
	calc.AnnualRate = rate
	calc.DailyInterest = interest

	return &calc, nil
}
