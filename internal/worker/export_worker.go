package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/core"
	"presupuesto/internal/services"
	"presupuesto/internal/sheets"
)

// ReportSource computes the budget report of a month.
type ReportSource interface {
	Report(ctx context.Context, ym core.YearMonth, usePaid bool) (services.BudgetReport, error)
}

// ExportWorker keeps the budget spreadsheet in step with the store. It reacts
// to month-changed events and is also driven by services.ExportProcessor.
type ExportWorker struct {
	reports  ReportSource
	exporter sheets.BudgetExporter
	now      func() time.Time
}

func NewExportWorker(reports ReportSource, exporter sheets.BudgetExporter) *ExportWorker {
	return &ExportWorker{
		reports:  reports,
		exporter: exporter,
		now:      time.Now,
	}
}

// HandleMonthChanged processes a single month-changed message from AMQP
func (w *ExportWorker) HandleMonthChanged(ctx context.Context, msg *amqp.MonthChangedMessage) error {
	slog.InfoContext(ctx, "Processing month changed message",
		"year_month", msg.YearMonth.String(),
		"kind", string(msg.Kind),
		"timestamp", msg.Timestamp)

	if err := w.ExportMonth(ctx, msg.YearMonth); err != nil {
		return fmt.Errorf("export month %s: %w", msg.YearMonth, err)
	}
	return nil
}

// ExportMonth recomputes the report of ym from current state and replaces its sheet row.
// Commitments are counted by their planned amount, matching the default report.
func (w *ExportWorker) ExportMonth(ctx context.Context, ym core.YearMonth) error {
	report, err := w.reports.Report(ctx, ym, false)
	if err != nil {
		return fmt.Errorf("compute report: %w", err)
	}

	ref, err := w.exporter.ExportMonth(ctx, RowFromReport(report, w.now()))
	if err != nil {
		return fmt.Errorf("write sheet row: %w", err)
	}

	slog.InfoContext(ctx, "Exported month budget",
		"year_month", ym.String(),
		"sheets_ref", ref,
		"final_available", report.Summary.FinalAvailable.String())
	return nil
}

// StartupExportCheck refreshes the current and previous month when the worker
// starts, covering events published while it was down.
func (w *ExportWorker) StartupExportCheck(ctx context.Context, current core.YearMonth) error {
	var failed int
	for _, ym := range []core.YearMonth{current.Prev(), current} {
		if err := w.ExportMonth(ctx, ym); err != nil {
			slog.ErrorContext(ctx, "Failed to export month during startup",
				"year_month", ym.String(), "error", err)
			failed++
		}
	}

	slog.InfoContext(ctx, "Startup export completed", "errors", failed)
	if failed > 0 {
		return fmt.Errorf("startup export: %d of 2 months failed", failed)
	}
	return nil
}

// RowFromReport flattens a report into the spreadsheet layout.
func RowFromReport(r services.BudgetReport, exportedAt time.Time) sheets.MonthRow {
	return sheets.MonthRow{
		YearMonth:        r.YearMonth,
		Sales:            r.Sales,
		PurchasePercent:  r.Settings.PurchasePercent,
		GrossBudget:      r.Summary.GrossBudget,
		Planned:          r.PlannedTotal,
		Paid:             r.PaidTotal,
		Purchases:        r.Summary.PurchasesTotal,
		FinalAvailable:   r.Summary.FinalAvailable,
		ConsumptionRatio: r.Summary.ConsumptionRatio,
		ExportedAt:       exportedAt,
	}
}
