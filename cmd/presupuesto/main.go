package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"presupuesto/internal/backend"
	"presupuesto/internal/cache"
	"presupuesto/internal/cli"
	"presupuesto/internal/config"
	apphttp "presupuesto/internal/http"
	"presupuesto/internal/log"
	"presupuesto/internal/services"
	"presupuesto/internal/suggest"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).Validate)

	logger.Info("Starting presupuesto", "port", cfg.Port, "backend", cfg.DataBackend)

	result, err := openBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err.Error(),
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	var suggester suggest.Suggester = suggest.Disabled{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := suggest.NewGeminiSuggester(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Category suggestion disabled", log.FieldError, err.Error())
		} else {
			defer gemini.Close()
			suggester = gemini
			logger.Info("Category suggestion enabled", "model", cfg.GeminiModel)
		}
	}

	budget := services.NewBudgetService(result.Backend, suggester, cfg.SettingsCacheTTL, logger)

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	if settings := budget.SettingsCache(); settings != nil {
		cacheManager.Register("settings", settings)
		cacheManager.StartCleanup(5 * time.Minute)
	}

	srv := apphttp.NewServer(":"+cfg.Port, budget, apphttp.Config{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cacheManager.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func openBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog())
	return factory.CreateBackend(ctx, bcfg)
}
