package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"presupuesto/internal/core"
)

// MonthExporter recomputes and publishes the budget of one month.
type MonthExporter interface {
	ExportMonth(ctx context.Context, ym core.YearMonth) error
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// Interval between exports of the current month (default: 15m)
	Interval time.Duration

	// MaxRetries is the number of attempts per export (default: 3)
	MaxRetries int

	// RetryDelay is the wait before the first retry; it doubles on each attempt (default: 2s)
	RetryDelay time.Duration

	// IncludePrevious also refreshes the previous month on every tick,
	// so late edits after a month rollover still reach the sheet.
	IncludePrevious bool
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		Interval:        15 * time.Minute,
		MaxRetries:      3,
		RetryDelay:      2 * time.Second,
		IncludePrevious: true,
	}
}

// ExportProcessor periodically exports the current month. It is the backup
// path for change events lost while the worker was down.
type ExportProcessor struct {
	exporter MonthExporter
	current  func(context.Context) (core.YearMonth, error)
	config   ExportProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(exporter MonthExporter, current func(context.Context) (core.YearMonth, error), config ExportProcessorConfig) *ExportProcessor {
	return &ExportProcessor{
		exporter: exporter,
		current:  current,
		config:   config,
	}
}

// Start begins the export loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	if p.config.Interval <= 0 {
		p.mu.Unlock()
		return fmt.Errorf("export processor interval must be positive, got %v", p.config.Interval)
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started",
		"interval", p.config.Interval,
		"max_retries", p.config.MaxRetries)

	return nil
}

// Stop gracefully stops the processor and waits for the running export.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.Tick(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick exports the current month, and the previous one when configured.
func (p *ExportProcessor) Tick(ctx context.Context) {
	ym, err := p.current(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to resolve current month", "error", err)
		return
	}

	months := []core.YearMonth{ym}
	if p.config.IncludePrevious {
		months = append(months, ym.Prev())
	}
	for _, m := range months {
		if err := p.ExportWithRetry(ctx, m); err != nil {
			slog.ErrorContext(ctx, "Periodic export failed permanently",
				"year_month", m.String(),
				"error", err)
		}
	}
}

// ExportWithRetry calls the exporter up to MaxRetries times with exponential backoff.
func (p *ExportProcessor) ExportWithRetry(ctx context.Context, ym core.YearMonth) error {
	attempts := p.config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := p.config.RetryDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = p.exporter.ExportMonth(ctx, ym); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		slog.WarnContext(ctx, "Export failed, retrying",
			"year_month", ym.String(),
			"attempt", attempt,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopped():
			return fmt.Errorf("export processor stopping: %w", err)
		}
		delay *= 2
	}
	return fmt.Errorf("export %s after %d attempts: %w", ym, attempts, err)
}

func (p *ExportProcessor) stopped() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCh
}
