/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave tracker server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and the environment
  2. Build the zap logger
  3. Open the SQLite store
  4. Load the roster (ROSTER_FILE or the embedded default)
  5. Seed employees and recompute cached balances
  6. Configure the admin session and HTTP router
  7. Start the recompute scheduler and the server

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Log emails instead of sending them
  ENABLE_EMAIL=true LOG_EMAIL=true ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/leave-tracker/api"
	"github.com/warp/leave-tracker/config"
	"github.com/warp/leave-tracker/factory"
	"github.com/warp/leave-tracker/notify"
	"github.com/warp/leave-tracker/store/sqlite"
	"github.com/warp/leave-tracker/timeoff"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	roster, err := loadRoster(cfg)
	if err != nil {
		return err
	}

	notifier := notify.New(notify.Config{
		Enabled:     cfg.EnableEmail,
		LogOnly:     cfg.LogEmail,
		AdminEmail:  cfg.AdminEmail,
		NotifyEmail: cfg.NotifyEmail,
		SMTP: notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		},
	}, logger)

	ledger := timeoff.NewLedger(store, roster, timeoff.LedgerConfig{
		SystemStartYear: cfg.SystemStartYear,
		AccrualMode:     cfg.AccrualMode,
		Notifier:        notifier,
		Logger:          logger,
	})

	seeded, err := ledger.SeedRoster(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed roster: %w", err)
	}
	if _, err := ledger.Recompute(ctx, ledger.Today()); err != nil {
		return fmt.Errorf("failed to recompute balances: %w", err)
	}
	logger.Info("roster loaded", zap.Int("employees", len(roster.Entries())), zap.Int("seeded", seeded))

	auth, err := newAuth(cfg, logger)
	if err != nil {
		return err
	}

	handler := api.NewHandler(ledger, logger)
	router := api.NewRouter(handler, auth, api.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	scheduler := api.NewRecomputeScheduler(ledger, logger)
	scheduler.Interval = cfg.RecomputeInterval
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

func loadRoster(cfg *config.Config) (*timeoff.Roster, error) {
	f := factory.NewRosterFactory()
	if cfg.RosterFile == "" {
		return f.Default()
	}
	roster, err := f.LoadFile(cfg.RosterFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster %s: %w", cfg.RosterFile, err)
	}
	return roster, nil
}

// newAuth builds the admin session. Outside production a missing password
// is replaced by a random one printed to the log.
func newAuth(cfg *config.Config, logger *zap.Logger) (*api.Auth, error) {
	authCfg := api.AuthConfig{
		Username:     cfg.AdminUser,
		PasswordHash: cfg.AdminPasswordHash,
		Password:     cfg.AdminPassword,
		Secret:       cfg.SessionSecret,
		TTL:          cfg.SessionTTL,
		SecureCookie: cfg.IsProduction(),
	}

	auth, err := api.NewAuth(authCfg, logger)
	if !errors.Is(err, api.ErrNoAdminPassword) {
		return auth, err
	}
	if cfg.IsProduction() {
		return nil, fmt.Errorf("set ADMIN_PASSWORD_HASH or ADMIN_PASSWORD: %w", err)
	}

	authCfg.Password = uuid.NewString()
	logger.Warn("no admin password configured, generated one for this run",
		zap.String("username", authCfg.Username),
		zap.String("password", authCfg.Password),
	)
	return api.NewAuth(authCfg, logger)
}
