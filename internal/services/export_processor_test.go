package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"presupuesto/internal/core"
)

type fakeExporter struct {
	mu       sync.Mutex
	exported []string
	failures int
}

func (f *fakeExporter) ExportMonth(_ context.Context, ym core.YearMonth) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sheets quota exceeded")
	}
	f.exported = append(f.exported, ym.String())
	return nil
}

func (f *fakeExporter) months() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.exported...)
}

func fixedMonth(ym core.YearMonth) func(context.Context) (core.YearMonth, error) {
	return func(context.Context) (core.YearMonth, error) { return ym, nil }
}

func TestDefaultExportProcessorConfig(t *testing.T) {
	config := DefaultExportProcessorConfig()

	if config.Interval != 15*time.Minute {
		t.Errorf("expected Interval 15m, got %v", config.Interval)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
	if !config.IncludePrevious {
		t.Error("expected IncludePrevious by default")
	}
}

func TestExportProcessor_Tick(t *testing.T) {
	exp := &fakeExporter{}
	p := NewExportProcessor(exp, fixedMonth(core.YearMonth{Year: 2025, Month: time.January}), DefaultExportProcessorConfig())

	p.Tick(context.Background())

	got := exp.months()
	if len(got) != 2 || got[0] != "2025-01" || got[1] != "2024-12" {
		t.Errorf("exported = %v", got)
	}
}

func TestExportProcessor_RetriesThenSucceeds(t *testing.T) {
	exp := &fakeExporter{failures: 2}
	config := ExportProcessorConfig{Interval: time.Minute, MaxRetries: 3, RetryDelay: time.Millisecond}
	p := NewExportProcessor(exp, nil, config)

	if err := p.ExportWithRetry(context.Background(), core.YearMonth{Year: 2025, Month: time.May}); err != nil {
		t.Fatalf("ExportWithRetry: %v", err)
	}
	if got := exp.months(); len(got) != 1 {
		t.Errorf("exported = %v", got)
	}
}

func TestExportProcessor_GivesUp(t *testing.T) {
	exp := &fakeExporter{failures: 5}
	config := ExportProcessorConfig{Interval: time.Minute, MaxRetries: 2, RetryDelay: time.Millisecond}
	p := NewExportProcessor(exp, nil, config)

	err := p.ExportWithRetry(context.Background(), core.YearMonth{Year: 2025, Month: time.May})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if exp.failures != 3 {
		t.Errorf("attempts = %d, want 2", 5-exp.failures)
	}
}

func TestExportProcessor_StartStop(t *testing.T) {
	exp := &fakeExporter{}
	config := ExportProcessorConfig{Interval: time.Hour, MaxRetries: 1}
	p := NewExportProcessor(exp, fixedMonth(core.YearMonth{Year: 2025, Month: time.March}), config)

	ctx := context.Background()
	if p.IsRunning() {
		t.Error("processor should not be running initially")
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
	// The loop exports once on startup before waiting for the ticker.
	if got := exp.months(); len(got) != 1 || got[0] != "2025-03" {
		t.Errorf("exported = %v", got)
	}
}

func TestExportProcessor_StopNotRunning(t *testing.T) {
	p := NewExportProcessor(&fakeExporter{}, nil, DefaultExportProcessorConfig())
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestExportProcessor_RejectsZeroInterval(t *testing.T) {
	p := NewExportProcessor(&fakeExporter{}, nil, ExportProcessorConfig{})
	if err := p.Start(context.Background()); err == nil {
		t.Error("expected error for zero interval")
	}
}
