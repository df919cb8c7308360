package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	_ "jobsphere/docs"
	"jobsphere/internal/config"
	"jobsphere/internal/db"
	"jobsphere/internal/handlers"
	"jobsphere/internal/jobsources"
	"jobsphere/internal/middleware"
	"jobsphere/internal/repositories"
	"jobsphere/internal/routes"
	"jobsphere/internal/services"
)

// JSearchCounter names the quota counter row for JSearch.
const JSearchCounter = "jsearch"

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.IsProd() && cfg.ResetCodeExposed() {
		logger.Warn("reset codes are returned to clients in prod", "setting", "auth.expose_reset_code")
	}

	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("database close failed", "error", err)
		}
	}()

	if n, err := repositories.NewUserRepository(conn).Count(ctx); err == nil {
		logger.Info("store ready", "driver", cfg.Database.Driver, "users", n)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewRouter(cfg, conn, logger),
		ReadTimeout:       cfg.Server.RequestTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		// provider calls can take two adapter timeouts
		WriteTimeout: cfg.Server.RequestTimeout + cfg.JSearch.Timeout + cfg.Arbeitnow.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.Server.Addr, "env", cfg.Env, "base_path", cfg.Server.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverErrors:
		logger.Error("http server stopped unexpectedly", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return runErr
}

// NewRouter wires repositories, services and handlers over conn.
func NewRouter(cfg *config.Config, conn *sql.DB, logger *slog.Logger) *gin.Engine {
	// === Repos ===
	userRepo := repositories.NewUserRepository(conn)
	sessionRepo := repositories.NewSessionRepository(conn)
	resetRepo := repositories.NewPasswordResetRepository(conn)
	counterRepo := repositories.NewApiCounterRepository(conn)

	// === Services ===
	authService := services.NewAuthServiceWithParams(services.Argon2Params{
		Time:      cfg.Auth.Argon2.Time,
		MemoryKiB: cfg.Auth.Argon2.MemoryKiB,
		Threads:   cfg.Auth.Argon2.Threads,
	})
	var emailService services.EmailService
	if cfg.Email.SMTPHost != "" {
		emailService = services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		)
	}

	userService := services.NewUserService(userRepo, emailService, authService, logger)
	sessionService := services.NewSessionService(sessionRepo, userRepo, logger)
	resetService := services.NewPasswordResetService(userRepo, resetRepo, emailService, authService, cfg.Auth.ResetCodeTTL, logger)
	quotaService := services.NewQuotaService(counterRepo, JSearchCounter, cfg.JSearch.Quota, cfg.JSearch.QuotaWindow, logger)

	arbeitnow := jobsources.NewArbeitnowClient(jobsources.ArbeitnowConfig{
		URL:     cfg.Arbeitnow.URL,
		Timeout: cfg.Arbeitnow.Timeout,
	}, logger)
	jsearch := jobsources.NewJSearchClient(jobsources.JSearchConfig{
		BaseURL: cfg.JSearch.BaseURL,
		APIKey:  cfg.JSearch.APIKey,
		Host:    cfg.JSearch.Host,
		Timeout: cfg.JSearch.Timeout,
	}, quotaService, logger)
	jobService := services.NewJobService(arbeitnow, jsearch, logger)

	// === Handlers ===
	cookies := handlers.CookieConfig{TTL: cfg.Session.CookieTTL, Secure: cfg.Session.SecureCookie}
	authHandler := handlers.NewAuthHandler(userService, sessionService, resetService, cookies, cfg.ResetCodeExposed(), logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	jobHandler := handlers.NewJobHandler(jobService, quotaService, logger)
	staticHandler := handlers.NewStaticHandler(cfg.Server.PublicDir, cfg.Server.BasePath)

	// === Gin ===
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	opts := routes.Options{
		BasePath: cfg.Server.BasePath,
		Auth:     middleware.SessionAuth(sessionService, logger),
	}
	if cfg.RateLimit.PerMinute > 0 {
		opts.AuthLimiter = middleware.NewRateLimiter(cfg.RateLimit.PerMinute, time.Minute).Middleware()
	}
	return routes.SetupRoutes(router, opts, authHandler, userHandler, jobHandler, staticHandler)
}

// NewLogger returns a text logger at debug level, or JSON at info in prod.
func NewLogger(env string, w io.Writer) *slog.Logger {
	if env == "prod" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
