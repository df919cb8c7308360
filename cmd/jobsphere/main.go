package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"jobsphere/internal/app"
	"jobsphere/internal/config"
)

// @title        Job Sphere API
// @version      1.0
// @description  Accounts, sessions and job search across Arbeitnow and JSearch.
// @BasePath     /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Env, os.Stdout)

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
