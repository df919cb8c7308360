// Command import-legacy copies the JSON data directory of the flat-file
// server into the configured database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"jobsphere/internal/app"
	"jobsphere/internal/config"
	"jobsphere/internal/db"
	"jobsphere/internal/legacy"
	"jobsphere/internal/repositories"
)

func main() {
	dataDir := flag.String("data", "data", "directory holding users.json, sessions.json, reset_codes.json and api_counter.json")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Env, os.Stderr)

	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	im := &legacy.Importer{
		Users:      repositories.NewUserRepository(conn),
		Sessions:   repositories.NewSessionRepository(conn),
		Resets:     repositories.NewPasswordResetRepository(conn),
		Counters:   repositories.NewApiCounterRepository(conn),
		CounterKey: app.JSearchCounter,
		Log:        logger,
	}
	if _, err := im.Import(ctx, *dataDir); err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
}
