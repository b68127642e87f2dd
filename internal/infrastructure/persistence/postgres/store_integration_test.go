package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kudipay/walletd/internal/domain"
	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
	"github.com/kudipay/walletd/internal/domain/money"
)

// setupPool starts a disposable PostgreSQL container and applies the schema.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("walletd_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../../../migrations", dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func seedWallet(t *testing.T, store *WalletStore, balance string) *domain.Wallet {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   "owner-" + uuid.NewString()[:8],
		Type:      domain.WalletTypeUser,
		Balance:   money.MustParse(balance),
		Currency:  "NGN",
		Status:    domain.WalletStatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Insert(context.Background(), w))
	return w
}

func seedLog(t *testing.T, store *TransactionLogStore, from, to *domain.Wallet, amount string) *domain.TransactionLog {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := &domain.TransactionLog{
		ID:             uuid.New(),
		IdempotencyKey: "key-" + uuid.NewString(),
		Type:           domain.TransactionTypeTransfer,
		FromWalletID:   from.ID,
		ToWalletID:     to.ID,
		Amount:         money.MustParse(amount),
		Currency:       "NGN",
		Status:         domain.TransactionStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.Insert(context.Background(), rec))
	return rec
}

func TestWalletStoreRoundTrip(t *testing.T) {
	pool := setupPool(t)
	store := NewWalletStore(pool)
	ctx := context.Background()

	w := seedWallet(t, store, "1234.56")

	got, err := store.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, "1234.56", got.Balance.String())
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, domain.WalletStatusActive, got.Status)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrWalletNotFound)

	byOwner, err := store.ListByOwner(ctx, w.OwnerID)
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
}

func TestWalletStoreUpdateVersioned(t *testing.T) {
	pool := setupPool(t)
	store := NewWalletStore(pool)
	runner := NewTxRunner(pool)
	ctx := context.Background()

	w := seedWallet(t, store, "100.00")

	err := runner.Run(ctx, func(tx pgx.Tx) error {
		locked, err := store.LockForUpdate(ctx, tx, w.ID)
		require.NoError(t, err)

		rows, err := store.UpdateVersioned(ctx, tx, w.ID, money.MustParse("75.00"), locked.Version)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rows)

		// A second update with the already-consumed version touches nothing.
		rows, err = store.UpdateVersioned(ctx, tx, w.ID, money.MustParse("50.00"), locked.Version)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rows)
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", got.Balance.String())
	assert.Equal(t, int64(2), got.Version)
}

func TestTransactionLogStoreUniqueKey(t *testing.T) {
	pool := setupPool(t)
	wallets := NewWalletStore(pool)
	logs := NewTransactionLogStore(pool)
	ctx := context.Background()

	from := seedWallet(t, wallets, "100.00")
	to := seedWallet(t, wallets, "0.00")
	rec := seedLog(t, logs, from, to, "25.00")

	dup := *rec
	dup.ID = uuid.New()
	assert.ErrorIs(t, logs.Insert(ctx, &dup), domainerrors.ErrDuplicateKey)

	got, err := logs.GetByKey(ctx, rec.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "25.00", got.Amount.String())
	assert.Equal(t, domain.TransactionStatusPending, got.Status)

	_, err = logs.GetByKey(ctx, "no-such-key")
	assert.ErrorIs(t, err, domainerrors.ErrTransactionNotFound)

	require.NoError(t, logs.MarkFailed(ctx, rec.ID, "insufficient funds"))
	got, err = logs.GetByKey(ctx, rec.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, got.Status)
	assert.Equal(t, "insufficient funds", got.ErrorMessage)
}

func TestLedgerStoreFullTransferFlow(t *testing.T) {
	pool := setupPool(t)
	wallets := NewWalletStore(pool)
	logs := NewTransactionLogStore(pool)
	ledger := NewLedgerStore(pool)
	runner := NewTxRunner(pool)
	ctx := context.Background()

	from := seedWallet(t, wallets, "100.00")
	to := seedWallet(t, wallets, "10.00")
	rec := seedLog(t, logs, from, to, "40.00")

	completedAt := time.Now().UTC().Truncate(time.Microsecond)

	err := runner.RunSerializable(ctx, func(tx pgx.Tx) error {
		require.NoError(t, logs.MarkProcessing(ctx, tx, rec.ID))

		lockedFrom, err := wallets.LockForUpdate(ctx, tx, from.ID)
		require.NoError(t, err)
		lockedTo, err := wallets.LockForUpdate(ctx, tx, to.ID)
		require.NoError(t, err)

		newFrom := lockedFrom.Balance.Sub(rec.Amount)
		newTo := lockedTo.Balance.Add(rec.Amount)

		rows, err := wallets.UpdateVersioned(ctx, tx, from.ID, newFrom, lockedFrom.Version)
		require.NoError(t, err)
		require.Equal(t, int64(1), rows)
		rows, err = wallets.UpdateVersioned(ctx, tx, to.ID, newTo, lockedTo.Version)
		require.NoError(t, err)
		require.Equal(t, int64(1), rows)

		debit := &domain.LedgerEntry{
			ID: uuid.New(), TransactionID: rec.ID, WalletID: from.ID,
			Type: domain.LedgerEntryDebit, Amount: rec.Amount, Currency: "NGN",
			BalanceAfter: newFrom, CreatedAt: completedAt, UpdatedAt: completedAt,
		}
		credit := &domain.LedgerEntry{
			ID: uuid.New(), TransactionID: rec.ID, WalletID: to.ID,
			Type: domain.LedgerEntryCredit, Amount: rec.Amount, Currency: "NGN",
			BalanceAfter: newTo, CreatedAt: completedAt, UpdatedAt: completedAt,
		}
		require.NoError(t, ledger.AppendPair(ctx, tx, debit, credit))

		return logs.MarkCompleted(ctx, tx, rec.ID, completedAt)
	})
	require.NoError(t, err)

	entries, err := ledger.ListByTransaction(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Amount.Equal(entries[1].Amount))

	byWallet, err := ledger.ListByWallet(ctx, from.ID, 10)
	require.NoError(t, err)
	require.Len(t, byWallet, 1)
	assert.Equal(t, domain.LedgerEntryDebit, byWallet[0].Type)
	assert.Equal(t, "60.00", byWallet[0].BalanceAfter.String())

	got, err := logs.GetByKey(ctx, rec.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestLedgerStoreRejectsUnbalancedPair(t *testing.T) {
	pool := setupPool(t)
	wallets := NewWalletStore(pool)
	logs := NewTransactionLogStore(pool)
	ledger := NewLedgerStore(pool)
	runner := NewTxRunner(pool)
	ctx := context.Background()

	from := seedWallet(t, wallets, "100.00")
	to := seedWallet(t, wallets, "0.00")
	rec := seedLog(t, logs, from, to, "40.00")

	err := runner.Run(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		debit := &domain.LedgerEntry{
			ID: uuid.New(), TransactionID: rec.ID, WalletID: from.ID,
			Type: domain.LedgerEntryDebit, Amount: money.MustParse("40.00"), Currency: "NGN",
			BalanceAfter: money.MustParse("60.00"), CreatedAt: now, UpdatedAt: now,
		}
		credit := &domain.LedgerEntry{
			ID: uuid.New(), TransactionID: rec.ID, WalletID: to.ID,
			Type: domain.LedgerEntryCredit, Amount: money.MustParse("41.00"), Currency: "NGN",
			BalanceAfter: money.MustParse("41.00"), CreatedAt: now, UpdatedAt: now,
		}
		return ledger.AppendPair(ctx, tx, debit, credit)
	})
	assert.Error(t, err)
}

func TestInterestStoreOneRowPerDay(t *testing.T) {
	pool := setupPool(t)
	wallets := NewWalletStore(pool)
	store := NewInterestStore(pool)
	ctx := context.Background()

	w := seedWallet(t, wallets, "1000.00")
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	calc := &domain.InterestCalculation{
		ID:            uuid.New(),
		WalletID:      w.ID,
		Balance:       w.Balance,
		AnnualRate:    money.MustParse("0.05").Decimal(),
		DailyInterest: money.MustParse("0.14"),
		CalculatedFor: day,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.Insert(ctx, calc))

	dup := *calc
	dup.ID = uuid.New()
	assert.Error(t, store.Insert(ctx, &dup), "second run for the same day must hit the unique index")

	history, err := store.ListByWallet(ctx, w.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "0.14", history[0].DailyInterest.String())
}
