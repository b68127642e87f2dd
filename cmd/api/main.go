// Command api runs the wallet transfer service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/kudipay/walletd/internal/config"
	"github.com/kudipay/walletd/internal/container"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(".", "config")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := container.New(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Logger.Info("service starting",
		slog.String("name", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment))

	return app.Server.Run()
}
