package main

import (
	"context"
	"errors"
	"os"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/cli"
	"presupuesto/internal/config"
	"presupuesto/internal/log"
	"presupuesto/internal/services"
	gsheet "presupuesto/internal/sheets/google"
	"presupuesto/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger = logger.WithComponent(log.ComponentWorker)

	logger.Info("Starting presupuesto-worker",
		"queue", cfg.AMQPQueue,
		"export_interval", cfg.ExportInterval)

	// The worker only reads; change events come from the API process.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	budget := services.NewBudgetService(repo, nil, 0, logger)

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(budget, sheetsClient)

	var processor *services.ExportProcessor
	if cfg.ExportInterval > 0 {
		pcfg := services.DefaultExportProcessorConfig()
		pcfg.Interval = cfg.ExportInterval
		processor = services.NewExportProcessor(exportWorker, budget.CurrentYearMonth, pcfg)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if processor != nil {
			if err := processor.Stop(shutdownCtx); err != nil {
				logger.Error("Export processor stop error", log.FieldError, err.Error())
			}
		}
	})

	if current, err := budget.CurrentYearMonth(ctx); err != nil {
		logger.Error("Failed to resolve current month", log.FieldError, err.Error())
	} else if err := exportWorker.StartupExportCheck(ctx, current); err != nil {
		// Not fatal; the next event or tick retries.
		logger.Error("Startup export check failed", log.FieldError, err.Error())
	}

	if processor != nil {
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start export processor", log.FieldError, err.Error())
			os.Exit(1)
		}
	} else {
		logger.Info("Periodic export disabled")
	}

	go func() {
		err := amqpClient.ConsumeMonthChanged(ctx, exportWorker.HandleMonthChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err.Error())
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("presupuesto-worker stopped")
}
