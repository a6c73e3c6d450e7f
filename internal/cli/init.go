// Package cli provides common process bootstrap shared by cmd/presupuesto
// and cmd/presupuesto-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"presupuesto/internal/config"
	"presupuesto/internal/log"
	"presupuesto/internal/storage"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and installs it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration, sets up logging from it and runs
// validate. The process exits when validation fails.
func LoadAndValidateConfig(validate func(*config.Config) error) (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the SQLite repository, applying pending migrations.
// The process exits on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err.Error(),
			"path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", repo.SchemaVersion())
	return repo
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then runs
// cleanup bounded by timeout. done is closed once cleanup returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(done)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Context cancelled")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
			return
		}
		logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
