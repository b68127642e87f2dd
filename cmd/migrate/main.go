// Command migrate applies or rolls back the database schema.
//
// Usage:
//
//	migrate -path ./migrations -action up
//	migrate -path ./migrations -action down -steps 1
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/kudipay/walletd/internal/config"
)

func main() {
	var (
		path   = flag.String("path", "./migrations", "path to migration files")
		action = flag.String("action", "up", "up, down or version")
		steps  = flag.Int("steps", 0, "number of steps for down (0 = all)")
	)
	flag.Parse()

	if err := run(*path, *action, *steps); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(path, action string, steps int) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m, err := migrate.New("file://"+path, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer m.Close()

	switch action {
	case "up":
		err = m.Up()
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			return verr
		}
		fmt.Printf("version=%d dirty=%v\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	fmt.Println("migrations applied")
	return nil
}
