package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudipay/walletd/internal/config"
	"github.com/kudipay/walletd/internal/domain"
	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
	"github.com/kudipay/walletd/internal/domain/money"
	"github.com/kudipay/walletd/internal/infrastructure/persistence/postgres"
)

// Coordinator runs the transfer protocol:
//
//  1. pre-validate the request (no side effects on rejection)
//  2. replay a completed key: from the result cache, or from the durable
//     row and its ledger pair when the cache entry was evicted
//  3. acquire the per-key lease
//  4. insert the durable PENDING intent row
//  5. inside one SERIALIZABLE transaction: mark PROCESSING, lock both
//     wallets in ascending id order, check status/currency/balance, apply
//     versioned balance updates, append the debit/credit ledger pair,
//     mark COMPLETED
//  6. cache the result, release the lease
//
// Any failure after step 4 marks the row FAILED outside the aborted
// transaction so the record of the attempt survives the rollback.
type Coordinator struct {
	tx      TxRunner
	wallets WalletStore
	logs    TransactionLogStore
	ledger  LedgerStore
	cache   LeaseCache
	logger  *slog.Logger

	leaseTTL        time.Duration
	idempotencyTTL  time.Duration
	maxAmount       money.Money
	defaultCurrency string
}

// NewCoordinator wires a Coordinator from its dependencies and transfer
// limits. Fails if the configured maximum amount is not a valid amount.
func NewCoordinator(
	tx TxRunner,
	wallets WalletStore,
	logs TransactionLogStore,
	ledger LedgerStore,
	cache LeaseCache,
	cfg *config.TransferConfig,
	logger *slog.Logger,
) (*Coordinator, error) {
	maxAmount, err := money.Parse(cfg.MaxTransferAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid max transfer amount: %w", err)
	}

	return &Coordinator{
		tx:              tx,
		wallets:         wallets,
		logs:            logs,
		ledger:          ledger,
		cache:           cache,
		logger:          logger,
		leaseTTL:        cfg.LeaseTTL(),
		idempotencyTTL:  cfg.IdempotencyTTL(),
		maxAmount:       maxAmount,
		defaultCurrency: cfg.DefaultCurrency,
	}, nil
}

// Transfer executes one idempotent transfer attempt. Re-submitting a
// completed key within the idempotency TTL returns the original result;
// submitting a key that is mid-flight returns ErrConcurrentInProgress.
func (c *Coordinator) Transfer(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(c.maxAmount); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = c.defaultCurrency
	}

	// Cache failures degrade to the database path, never fail the transfer.
	if data, found, err := c.cache.GetResult(ctx, req.IdempotencyKey); err != nil {
		c.logger.Warn("result cache read failed",
			slog.String("idempotency_key", req.IdempotencyKey),
			slog.Any("error", err))
	} else if found {
		var cached Result
		if err := json.Unmarshal(data, &cached); err == nil {
			cached.Replayed = true
			c.logger.Info("transfer replayed from cache",
				slog.String("idempotency_key", req.IdempotencyKey),
				slog.String("transaction_id", cached.TransactionID.String()))
			return &cached, nil
		}
		c.logger.Warn("discarding unreadable cached result",
			slog.String("idempotency_key", req.IdempotencyKey),
			slog.Any("error", err))
	}

	// The durable row is consulted before the lease: a COMPLETED key replays
	// its historical result even while another worker still holds the lease,
	// e.g. one left over from a crash within the lease TTL.
	if rec, err := c.logs.GetByKey(ctx, req.IdempotencyKey); err == nil {
		if rec.Status == domain.TransactionStatusCompleted {
			result, err := c.replay(ctx, rec)
			if err != nil {
				return nil, err
			}
			c.cacheResult(ctx, req.IdempotencyKey, result)
			return result, nil
		}
	} else if !errors.Is(err, domainerrors.ErrTransactionNotFound) {
		return nil, domainerrors.NewInternal("load transaction log", err)
	}

	acquired, err := c.cache.TryAcquire(ctx, req.IdempotencyKey, c.leaseTTL)
	if err != nil {
		return nil, domainerrors.NewInternal("acquire lease", err)
	}
	if !acquired {
		return nil, domainerrors.ErrConcurrentInProgress
	}
	defer func() {
		// Release on every exit path; the TTL covers a crash here.
		if err := c.cache.Release(context.WithoutCancel(ctx), req.IdempotencyKey); err != nil {
			c.logger.Warn("lease release failed",
				slog.String("idempotency_key", req.IdempotencyKey),
				slog.Any("error", err))
		}
	}()

	now := time.Now().UTC()
	logRow := &domain.TransactionLog{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		Type:           domain.TransactionTypeTransfer,
		FromWalletID:   req.FromWalletID,
		ToWalletID:     req.ToWalletID,
		Amount:         req.Amount,
		Currency:       currency,
		Status:         domain.TransactionStatusPending,
		Description:    req.Description,
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := c.logs.Insert(ctx, logRow); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateKey) {
			// The cache missed but the durable row exists: either a replay
			// after cache eviction or a race the lease did not cover.
			return c.resolveExisting(ctx, req.IdempotencyKey)
		}
		return nil, domainerrors.NewInternal("insert transaction log", err)
	}

	result, err := c.execute(ctx, logRow, currency)
	if err != nil {
		c.markFailed(ctx, logRow.ID, req.IdempotencyKey, err)
		return nil, err
	}

	c.cacheResult(ctx, req.IdempotencyKey, result)

	c.logger.Info("transfer completed",
		slog.String("idempotency_key", req.IdempotencyKey),
		slog.String("transaction_id", result.TransactionID.String()),
		slog.String("from_wallet_id", req.FromWalletID.String()),
		slog.String("to_wallet_id", req.ToWalletID.String()),
		slog.String("amount", req.Amount.String()),
		slog.String("currency", currency))

	return result, nil
}

// execute runs the serializable section of the protocol and builds the
// Result from the post-transfer balances.
func (c *Coordinator) execute(ctx context.Context, logRow *domain.TransactionLog, currency string) (*Result, error) {
	var result *Result

	err := c.tx.RunSerializable(ctx, func(tx pgx.Tx) error {
		if err := c.logs.MarkProcessing(ctx, tx, logRow.ID); err != nil {
			return err
		}

		// Lock both wallets in ascending id order so two opposing transfers
		// between the same pair cannot deadlock.
		from, to, err := c.lockPair(ctx, tx, logRow.FromWalletID, logRow.ToWalletID)
		if err != nil {
			return err
		}

		if !from.IsActive() {
			return &domainerrors.InactiveWalletError{WalletID: from.ID, Status: string(from.Status)}
		}
		if !to.IsActive() {
			return &domainerrors.InactiveWalletError{WalletID: to.ID, Status: string(to.Status)}
		}

		if from.Currency != currency {
			return domainerrors.NewInvalidRequest("currency",
				fmt.Sprintf("source wallet holds %s, not %s", from.Currency, currency))
		}
		if to.Currency != currency {
			return domainerrors.NewInvalidRequest("currency",
				fmt.Sprintf("destination wallet holds %s, not %s", to.Currency, currency))
		}

		if from.Balance.LessThan(logRow.Amount) {
			return &domainerrors.InsufficientFundsError{
				WalletID:  from.ID,
				Available: from.Balance.String(),
				Required:  logRow.Amount.String(),
			}
		}

		newFrom := from.Balance.Sub(logRow.Amount)
		newTo := to.Balance.Add(logRow.Amount)

		if err := c.applyVersioned(ctx, tx, from, newFrom); err != nil {
			return err
		}
		if err := c.applyVersioned(ctx, tx, to, newTo); err != nil {
			return err
		}

		completedAt := time.Now().UTC()

		debit := &domain.LedgerEntry{
			ID:            uuid.New(),
			TransactionID: logRow.ID,
			WalletID:      from.ID,
			Type:          domain.LedgerEntryDebit,
			Amount:        logRow.Amount,
			Currency:      currency,
			BalanceAfter:  newFrom,
			Description:   logRow.Description,
			CreatedAt:     completedAt,
			UpdatedAt:     completedAt,
		}
		credit := &domain.LedgerEntry{
			ID:            uuid.New(),
			TransactionID: logRow.ID,
			WalletID:      to.ID,
			Type:          domain.LedgerEntryCredit,
			Amount:        logRow.Amount,
			Currency:      currency,
			BalanceAfter:  newTo,
			Description:   logRow.Description,
			CreatedAt:     completedAt,
			UpdatedAt:     completedAt,
		}
		if err := c.ledger.AppendPair(ctx, tx, debit, credit); err != nil {
			return err
		}

		if err := c.logs.MarkCompleted(ctx, tx, logRow.ID, completedAt); err != nil {
			return err
		}

		result = &Result{
			Success:       true,
			TransactionID: logRow.ID,
			Status:        domain.TransactionStatusCompleted,
			From:          Endpoint{WalletID: from.ID, NewBalance: newFrom},
			To:            Endpoint{WalletID: to.ID, NewBalance: newTo},
			Timestamp:     completedAt,
		}
		return nil
	})
	if err != nil {
		if postgres.IsSerializationFailure(err) {
			// Lost a SERIALIZABLE race; the caller may retry the same key.
			return nil, fmt.Errorf("%w: serialization conflict", domainerrors.ErrConcurrentInProgress)
		}
		return nil, err
	}

	return result, nil
}

// lockPair acquires FOR UPDATE locks on both wallets in ascending id order
// and returns them as (from, to).
func (c *Coordinator) lockPair(ctx context.Context, tx pgx.Tx, fromID, toID uuid.UUID) (*domain.Wallet, *domain.Wallet, error) {
	ids := []uuid.UUID{fromID, toID}
	if toID.String() < fromID.String() {
		ids[0], ids[1] = toID, fromID
	}

	locked := make(map[uuid.UUID]*domain.Wallet, 2)
	for _, id := range ids {
		w, err := c.wallets.LockForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, domainerrors.ErrWalletNotFound) {
				return nil, nil, fmt.Errorf("wallet %s: %w", id, err)
			}
			return nil, nil, err
		}
		locked[id] = w
	}

	return locked[fromID], locked[toID], nil
}

// applyVersioned writes the new balance guarded by the wallet's version.
func (c *Coordinator) applyVersioned(ctx context.Context, tx pgx.Tx, w *domain.Wallet, newBalance money.Money) error {
	rows, err := c.wallets.UpdateVersioned(ctx, tx, w.ID, newBalance, w.Version)
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domainerrors.VersionConflictError{WalletID: w.ID, ExpectedVersion: w.Version}
	}
	return nil
}

// resolveExisting handles the durable-row collision on insert: a COMPLETED
// row replays the historical result from the ledger; any other status means
// the key is taken and this attempt must not run.
func (c *Coordinator) resolveExisting(ctx context.Context, key string) (*Result, error) {
	rec, err := c.logs.GetByKey(ctx, key)
	if err != nil {
		return nil, domainerrors.NewInternal("load transaction log", err)
	}

	if rec.Status != domain.TransactionStatusCompleted {
		// PENDING/PROCESSING rows are mid-flight. A FAILED row is terminal:
		// the key is burned and the caller must submit a fresh one.
		return nil, domainerrors.ErrConcurrentInProgress
	}

	result, err := c.replay(ctx, rec)
	if err != nil {
		return nil, err
	}

	c.cacheResult(ctx, key, result)
	return result, nil
}

// replay reconstructs the original Result for a COMPLETED row from the
// ledger entries' balance_after values. Current wallet balances are never
// consulted, so the replayed answer matches the first one exactly.
func (c *Coordinator) replay(ctx context.Context, rec *domain.TransactionLog) (*Result, error) {
	entries, err := c.ledger.ListByTransaction(ctx, rec.ID)
	if err != nil {
		return nil, domainerrors.NewInternal("load ledger entries", err)
	}

	var from, to Endpoint
	for _, entry := range entries {
		switch entry.Type {
		case domain.LedgerEntryDebit:
			from = Endpoint{WalletID: entry.WalletID, NewBalance: entry.BalanceAfter}
		case domain.LedgerEntryCredit:
			to = Endpoint{WalletID: entry.WalletID, NewBalance: entry.BalanceAfter}
		}
	}
	if from.WalletID == uuid.Nil || to.WalletID == uuid.Nil {
		return nil, domainerrors.NewInternal("replay transfer",
			fmt.Errorf("transaction %s has an incomplete ledger pair", rec.ID))
	}

	timestamp := rec.UpdatedAt
	if rec.CompletedAt != nil {
		timestamp = *rec.CompletedAt
	}

	return &Result{
		Success:       true,
		TransactionID: rec.ID,
		Status:        domain.TransactionStatusCompleted,
		From:          from,
		To:            to,
		Timestamp:     timestamp,
		Replayed:      true,
	}, nil
}

// markFailed records the failure reason on the intent row, outside the
// aborted transaction. Best effort: the row staying PENDING is tolerable,
// losing the business error result is not, so the original error wins.
func (c *Coordinator) markFailed(ctx context.Context, id uuid.UUID, key string, cause error) {
	if err := c.logs.MarkFailed(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		c.logger.Error("failed to mark transaction failed",
			slog.String("idempotency_key", key),
			slog.String("transaction_id", id.String()),
			slog.Any("error", err))
	}
}

// cacheResult stores the serialized result; a cache write failure only costs
// a database replay later.
func (c *Coordinator) cacheResult(ctx context.Context, key string, result *Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("failed to marshal result for caching",
			slog.String("idempotency_key", key),
			slog.Any("error", err))
		return
	}

	if err := c.cache.PutResult(context.WithoutCancel(ctx), key, data, c.idempotencyTTL); err != nil {
		c.logger.Warn("failed to cache transfer result",
			slog.String("idempotency_key", key),
			slog.Any("error", err))
	}
}
