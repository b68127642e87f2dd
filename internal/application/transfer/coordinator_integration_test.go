package transfer

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kudipay/walletd/internal/config"
	"github.com/kudipay/walletd/internal/domain"
	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
	"github.com/kudipay/walletd/internal/domain/money"
	"github.com/kudipay/walletd/internal/infrastructure/persistence/postgres"
)

// memoryLeaseCache gives the coordinator real mutual exclusion between
// goroutines without a redis container: SetNX/Del semantics behind a mutex.
type memoryLeaseCache struct {
	mu      sync.Mutex
	locks   map[string]struct{}
	results map[string][]byte
}

func newMemoryLeaseCache() *memoryLeaseCache {
	return &memoryLeaseCache{
		locks:   make(map[string]struct{}),
		results: make(map[string][]byte),
	}
}

func (c *memoryLeaseCache) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locks[key]; held {
		return false, nil
	}
	c.locks[key] = struct{}{}
	return true, nil
}

func (c *memoryLeaseCache) Release(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, key)
	return nil
}

func (c *memoryLeaseCache) PutResult(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = data
	return nil
}

func (c *memoryLeaseCache) GetResult(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.results[key]
	return data, ok, nil
}

type integrationFixture struct {
	coordinator *Coordinator
	wallets     *postgres.WalletStore
	logs        *postgres.TransactionLogStore
	ledger      *postgres.LedgerStore
}

// setupIntegration starts a disposable PostgreSQL container, applies the
// schema and wires a coordinator over the real stores.
func setupIntegration(t *testing.T) *integrationFixture {
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

	m, err := migrate.New("file://../../../migrations", dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	wallets := postgres.NewWalletStore(pool)
	logs := postgres.NewTransactionLogStore(pool)
	ledger := postgres.NewLedgerStore(pool)

	coordinator, err := NewCoordinator(
		postgres.NewTxRunner(pool), wallets, logs, ledger, newMemoryLeaseCache(),
		&config.Test().Transfer,
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, err)

	return &integrationFixture{
		coordinator: coordinator,
		wallets:     wallets,
		logs:        logs,
		ledger:      ledger,
	}
}

func seedActiveWallet(t *testing.T, store *postgres.WalletStore, balance string) *domain.Wallet {
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

// Two workers race the same idempotency key: exactly one execution of the
// serializable section, one COMPLETED row, one balanced ledger pair. The
// loser either conflicts or is handed the winner's result.
func TestCoordinatorConcurrency_SameKeyRace(t *testing.T) {
	f := setupIntegration(t)
	ctx := context.Background()

	from := seedActiveWallet(t, f.wallets, "1000.00")
	to := seedActiveWallet(t, f.wallets, "500.00")

	req := &Request{
		IdempotencyKey: "race-" + uuid.NewString(),
		FromWalletID:   from.ID,
		ToWalletID:     to.ID,
		Amount:         money.MustParse("100.00"),
		Currency:       "NGN",
	}

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.coordinator.Transfer(ctx, req)
		}(i)
	}
	wg.Wait()

	var winners []*Result
	for i := range results {
		if errs[i] == nil {
			winners = append(winners, results[i])
			continue
		}
		assert.ErrorIs(t, errs[i], domainerrors.ErrConcurrentInProgress)
	}
	require.NotEmpty(t, winners, "at least one worker must complete the transfer")
	for _, w := range winners {
		assert.Equal(t, winners[0].TransactionID, w.TransactionID,
			"every successful answer must describe the same transaction")
	}

	rec, err := f.logs.GetByKey(ctx, req.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, rec.Status)

	entries, err := f.ledger.ListByTransaction(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the money must have moved exactly once")

	gotFrom, err := f.wallets.Get(ctx, from.ID)
	require.NoError(t, err)
	gotTo, err := f.wallets.Get(ctx, to.ID)
	require.NoError(t, err)
	assert.Equal(t, "900.00", gotFrom.Balance.String())
	assert.Equal(t, "600.00", gotTo.Balance.String())
}

// Opposing transfers between the same pair of wallets run concurrently.
// Ascending-id lock ordering rules out deadlock; a loser of the serializable
// race retries with a fresh key (FAILED keys are terminal). Both must
// eventually commit, restoring the starting balances.
func TestCoordinatorConcurrency_OpposingTransfers(t *testing.T) {
	f := setupIntegration(t)
	ctx := context.Background()

	a := seedActiveWallet(t, f.wallets, "300.00")
	b := seedActiveWallet(t, f.wallets, "300.00")

	run := func(from, to uuid.UUID, out chan<- *Result) {
		var lastErr error
		for attempt := 0; attempt < 10; attempt++ {
			res, err := f.coordinator.Transfer(ctx, &Request{
				IdempotencyKey: "cross-" + uuid.NewString(),
				FromWalletID:   from,
				ToWalletID:     to,
				Amount:         money.MustParse("10.00"),
				Currency:       "NGN",
			})
			if err == nil {
				out <- res
				return
			}
			lastErr = err
			if !domainerrors.IsConcurrentInProgress(err) {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Errorf("transfer %s -> %s did not commit: %v", from, to, lastErr)
		out <- nil
	}

	aToB := make(chan *Result, 1)
	bToA := make(chan *Result, 1)
	go run(a.ID, b.ID, aToB)
	go run(b.ID, a.ID, bToA)

	first, second := <-aToB, <-bToA
	require.NotNil(t, first)
	require.NotNil(t, second)

	gotA, err := f.wallets.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := f.wallets.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "300.00", gotA.Balance.String(), "opposing transfers must cancel out")
	assert.Equal(t, "300.00", gotB.Balance.String(), "opposing transfers must cancel out")
	assert.Greater(t, gotA.Version, a.Version)
	assert.Greater(t, gotB.Version, b.Version)

	total := 0
	for _, res := range []*Result{first, second} {
		entries, err := f.ledger.ListByTransaction(ctx, res.TransactionID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		total += len(entries)
	}
	assert.Equal(t, 4, total, "two entries per committed transfer")
}
