// Package container is the composition root: it builds every component from
// configuration and hands the wired server to main.
package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	adapterhttp "github.com/kudipay/walletd/internal/adapters/http"
	"github.com/kudipay/walletd/internal/adapters/http/handlers"
	"github.com/kudipay/walletd/internal/application/interest"
	"github.com/kudipay/walletd/internal/application/transfer"
	"github.com/kudipay/walletd/internal/config"
	"github.com/kudipay/walletd/internal/infrastructure/cache/redis"
	"github.com/kudipay/walletd/internal/infrastructure/persistence/postgres"
	"github.com/kudipay/walletd/internal/pkg/logger"
)

// Container holds the wired application.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Pool  *pgxpool.Pool
	Redis *goredis.Client

	Coordinator *transfer.Coordinator
	Interest    *interest.Calculator

	Server *adapterhttp.Server
}

// New builds the full object graph. On error, everything already opened is
// closed before returning.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	walletStore := postgres.NewWalletStore(pool)
	logStore := postgres.NewTransactionLogStore(pool)
	ledgerStore := postgres.NewLedgerStore(pool)
	interestStore := postgres.NewInterestStore(pool)
	txRunner := postgres.NewTxRunner(pool)
	leaseCache := redis.NewIdempotencyCache(redisClient)

	coordinator, err := transfer.NewCoordinator(
		txRunner, walletStore, logStore, ledgerStore, leaseCache,
		&cfg.Transfer, log,
	)
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to build transfer coordinator: %w", err)
	}

	calculator, err := interest.NewCalculator(walletStore, interestStore, &cfg.Interest, log)
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to build interest calculator: %w", err)
	}

	router := adapterhttp.NewRouter(&adapterhttp.RouterDeps{
		Logger:      log,
		Environment: cfg.App.Environment,
		Health:      handlers.NewHealthHandler(pool, redisClient, cfg.App.Version),
		Transfer:    handlers.NewTransferHandler(coordinator),
		Wallet:      handlers.NewWalletHandler(walletStore, ledgerStore),
		Transaction: handlers.NewTransactionHandler(logStore),
		Interest:    handlers.NewInterestHandler(calculator),
	})

	return &Container{
		Config:      cfg,
		Logger:      log,
		Pool:        pool,
		Redis:       redisClient,
		Coordinator: coordinator,
		Interest:    calculator,
		Server:      adapterhttp.NewServer(&cfg.Server, router, log),
	}, nil
}

// Close releases the database pool and the cache connection.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
