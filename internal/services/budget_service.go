package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"presupuesto/internal/cache"
	"presupuesto/internal/core"
	"presupuesto/internal/log"
	"presupuesto/internal/ports"
	"presupuesto/internal/suggest"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	settingsCacheKey = "global"

	// MaxSalesHistory bounds the sales history request.
	MaxSalesHistory = 120

	// CurrentToken selects the current month in the settings timezone.
	CurrentToken = "current"
)

type (
	// BudgetReport holds a month's inputs next to the summary derived from them.
	BudgetReport struct {
		YearMonth    core.YearMonth
		Sales        decimal.Decimal
		HasSales     bool
		Settings     core.GlobalSettings
		PlannedTotal decimal.Decimal
		PaidTotal    decimal.Decimal
		UsePaid      bool
		Summary      core.BudgetSummary
	}

	// CalendarDay is a grid cell with the commitment stored for its date.
	CalendarDay struct {
		core.DayRecord
		Commitment    core.CommitmentRecord
		HasCommitment bool
	}

	CommitmentCalendar struct {
		YearMonth core.YearMonth
		Days      []CalendarDay
		WeekCount int
		Weeks     []core.WeekTotal
		Totals    core.WeekTotals
	}

	SalesHistoryEntry struct {
		core.SalesRecord
		PurchaseBudget decimal.Decimal
	}

	SalesHistory struct {
		Settings core.GlobalSettings
		Entries  []SalesHistoryEntry
	}

	PurchaseList struct {
		YearMonth core.YearMonth
		Purchases []core.PurchaseRecord
		Total     decimal.Decimal
	}
)

// BudgetService orchestrates the stores and the pure budget core.
type BudgetService struct {
	store     ports.Store
	suggester suggest.Suggester
	settings  *cache.LRUCache[core.GlobalSettings]
	logger    *log.Logger
	now       func() time.Time
}

// NewBudgetService wires the service. A settingsTTL of zero disables the
// settings cache; a nil suggester disables category suggestions.
func NewBudgetService(store ports.Store, suggester suggest.Suggester, settingsTTL time.Duration, logger *log.Logger) *BudgetService {
	if suggester == nil {
		suggester = suggest.Disabled{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &BudgetService{
		store:     store,
		suggester: suggester,
		logger:    logger.WithComponent(log.ComponentBudget),
		now:       time.Now,
	}
	if settingsTTL > 0 {
		s.settings = cache.NewLRUCache[core.GlobalSettings](1, settingsTTL)
	}
	return s
}

// SettingsCache exposes the settings cache for registration with a cache.Manager.
// It is nil when caching is disabled.
func (s *BudgetService) SettingsCache() *cache.LRUCache[core.GlobalSettings] {
	return s.settings
}

// GetSettings returns the normalized global settings.
func (s *BudgetService) GetSettings(ctx context.Context) (core.GlobalSettings, error) {
	load := func(ctx context.Context) (core.GlobalSettings, error) {
		gs, err := s.store.GetGlobalSettings(ctx)
		if err != nil {
			return core.GlobalSettings{}, fmt.Errorf("get settings: %w", err)
		}
		return gs.Normalize(), nil
	}
	if s.settings == nil {
		return load(ctx)
	}
	return s.settings.GetOrLoad(ctx, settingsCacheKey, load)
}

// UpdateSettings merges patch over the stored settings.
func (s *BudgetService) UpdateSettings(ctx context.Context, patch core.SettingsPatch) (core.GlobalSettings, error) {
	if patch.IsEmpty() {
		return core.GlobalSettings{}, fmt.Errorf("%w: purchasePercent or timezone is required", core.ErrEmptyPatch)
	}
	current, err := s.GetSettings(ctx)
	if err != nil {
		return core.GlobalSettings{}, err
	}
	if err := current.Apply(patch).Validate(); err != nil {
		return core.GlobalSettings{}, err
	}

	out, err := s.store.UpsertGlobalSettings(ctx, patch)
	if s.settings != nil {
		s.settings.Delete(settingsCacheKey)
	}
	if err != nil {
		return core.GlobalSettings{}, fmt.Errorf("update settings: %w", err)
	}

	s.logger.InfoContext(ctx, "Settings updated",
		"purchase_percent", out.PurchasePercent,
		"timezone", out.Timezone)
	return out.Normalize(), nil
}

// CurrentYearMonth is today's month in the settings timezone.
func (s *BudgetService) CurrentYearMonth(ctx context.Context) (core.YearMonth, error) {
	gs, err := s.GetSettings(ctx)
	if err != nil {
		return core.YearMonth{}, err
	}
	return core.YearMonthOf(s.now().In(gs.Location())), nil
}

// ResolveYearMonth parses token, mapping "" and "current" to the current month.
func (s *BudgetService) ResolveYearMonth(ctx context.Context, token string) (core.YearMonth, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.EqualFold(token, CurrentToken) {
		return s.CurrentYearMonth(ctx)
	}
	return core.ParseYearMonth(token)
}

// Report computes the budget summary of ym. The four inputs are read concurrently.
func (s *BudgetService) Report(ctx context.Context, ym core.YearMonth, usePaid bool) (BudgetReport, error) {
	if err := ym.Validate(); err != nil {
		return BudgetReport{}, err
	}

	var (
		gs          core.GlobalSettings
		sales       core.SalesRecord
		hasSales    bool
		commitments []core.CommitmentRecord
		purchases   []core.PurchaseRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		gs, err = s.GetSettings(gctx)
		return err
	})
	g.Go(func() (err error) {
		sales, hasSales, err = s.store.GetSales(gctx, ym)
		if err != nil {
			err = fmt.Errorf("get sales: %w", err)
		}
		return err
	})
	g.Go(func() (err error) {
		commitments, err = s.store.ListCommitments(gctx, ym)
		if err != nil {
			err = fmt.Errorf("list commitments: %w", err)
		}
		return err
	})
	g.Go(func() (err error) {
		purchases, err = s.store.ListPurchases(gctx, ym)
		if err != nil {
			err = fmt.Errorf("list purchases: %w", err)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return BudgetReport{}, err
	}
	commitments = core.IndexCommitments(commitments).Records()

	amount := decimal.Zero
	if hasSales {
		amount = sales.Amount
	}
	summary, err := core.ComputeSummary(amount, gs.PurchasePercent, commitments, purchases, usePaid)
	if err != nil {
		return BudgetReport{}, fmt.Errorf("compute summary %s: %w", ym, err)
	}

	report := BudgetReport{
		YearMonth:    ym,
		Sales:        amount,
		HasSales:     hasSales,
		Settings:     gs,
		PlannedTotal: decimal.Zero,
		PaidTotal:    decimal.Zero,
		UsePaid:      usePaid,
		Summary:      summary,
	}
	for _, c := range commitments {
		report.PlannedTotal = report.PlannedTotal.Add(c.Planned)
		report.PaidTotal = report.PaidTotal.Add(c.Paid)
	}

	s.logger.DebugContext(ctx, "Budget computed",
		log.FieldYearMonth, ym.String(),
		log.FieldUsePaid, usePaid,
		"final_available", summary.FinalAvailable.String())
	return report, nil
}

// Calendar returns the month grid with each day's commitment and the weekly aggregates.
func (s *BudgetService) Calendar(ctx context.Context, ym core.YearMonth) (CommitmentCalendar, error) {
	if err := ym.Validate(); err != nil {
		return CommitmentCalendar{}, err
	}
	commitments, err := s.store.ListCommitments(ctx, ym)
	if err != nil {
		return CommitmentCalendar{}, fmt.Errorf("list commitments: %w", err)
	}

	grid := ym.Grid()
	idx := core.IndexCommitments(commitments)
	days := make([]CalendarDay, len(grid))
	for i, day := range grid {
		days[i] = CalendarDay{DayRecord: day}
		if !day.IsCurrentMonth {
			continue
		}
		if c, ok := idx.Lookup(day.Date); ok {
			days[i].Commitment = c
			days[i].HasCommitment = true
		}
	}

	return CommitmentCalendar{
		YearMonth: ym,
		Days:      days,
		WeekCount: core.WeekCount(grid),
		Weeks:     core.SortedWeeks(core.AggregateByWeek(grid, commitments)),
		Totals:    core.MonthTotals(grid, commitments),
	}, nil
}

// UpdateCommitment merges patch into the commitment of date, creating it with zeros when absent.
func (s *BudgetService) UpdateCommitment(ctx context.Context, date core.Date, patch core.CommitmentPatch) (core.CommitmentRecord, error) {
	if err := date.Validate(); err != nil {
		return core.CommitmentRecord{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.CommitmentRecord{}, err
	}
	rec, err := s.store.UpsertCommitment(ctx, date, patch)
	if err != nil {
		return core.CommitmentRecord{}, fmt.Errorf("upsert commitment %s: %w", date, err)
	}
	return rec, nil
}

func (s *BudgetService) GetSales(ctx context.Context, ym core.YearMonth) (core.SalesRecord, bool, error) {
	if err := ym.Validate(); err != nil {
		return core.SalesRecord{}, false, err
	}
	rec, found, err := s.store.GetSales(ctx, ym)
	if err != nil {
		return core.SalesRecord{}, false, fmt.Errorf("get sales %s: %w", ym, err)
	}
	return rec, found, nil
}

func (s *BudgetService) SetSales(ctx context.Context, ym core.YearMonth, amount decimal.Decimal) (core.SalesRecord, error) {
	if err := (core.SalesRecord{YearMonth: ym, Amount: amount}).Validate(); err != nil {
		return core.SalesRecord{}, err
	}
	rec, err := s.store.SetSales(ctx, ym, amount)
	if err != nil {
		return core.SalesRecord{}, fmt.Errorf("set sales %s: %w", ym, err)
	}
	return rec, nil
}

// SalesHistory lists the most recent months of sales, newest first, with
// the purchase budget each allows at the current percent.
func (s *BudgetService) SalesHistory(ctx context.Context, limit int) (SalesHistory, error) {
	if limit <= 0 {
		limit = ports.DefaultRecentSales
	}
	if limit > MaxSalesHistory {
		limit = MaxSalesHistory
	}

	var (
		gs      core.GlobalSettings
		records []core.SalesRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		gs, err = s.GetSettings(gctx)
		return err
	})
	g.Go(func() (err error) {
		records, err = s.store.ListRecentSales(gctx, limit)
		if err != nil {
			err = fmt.Errorf("list recent sales: %w", err)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return SalesHistory{}, err
	}

	entries := make([]SalesHistoryEntry, len(records))
	for i, r := range records {
		entries[i] = SalesHistoryEntry{SalesRecord: r, PurchaseBudget: r.PurchaseBudget(gs.PurchasePercent)}
	}
	return SalesHistory{Settings: gs, Entries: entries}, nil
}

// ListPurchases returns the purchases of ym, newest first, with their total.
func (s *BudgetService) ListPurchases(ctx context.Context, ym core.YearMonth) (PurchaseList, error) {
	if err := ym.Validate(); err != nil {
		return PurchaseList{}, err
	}
	purchases, err := s.store.ListPurchases(ctx, ym)
	if err != nil {
		return PurchaseList{}, fmt.Errorf("list purchases %s: %w", ym, err)
	}
	total := decimal.Zero
	for _, p := range purchases {
		total = total.Add(p.Amount)
	}
	return PurchaseList{YearMonth: ym, Purchases: purchases, Total: total}, nil
}

// AddPurchase validates and stores p. The year-month is derived from the
// date when not given.
func (s *BudgetService) AddPurchase(ctx context.Context, p core.PurchaseRecord) (core.PurchaseRecord, error) {
	p.Category = strings.TrimSpace(p.Category)
	p.Note = strings.TrimSpace(p.Note)
	if p.YearMonth.IsZero() && !p.Date.IsZero() {
		p.YearMonth = p.Date.YearMonth()
	}
	if err := p.Validate(); err != nil {
		return core.PurchaseRecord{}, err
	}

	id, err := s.store.AddPurchase(ctx, p)
	if err != nil {
		return core.PurchaseRecord{}, fmt.Errorf("add purchase: %w", err)
	}
	p.ID = id
	return p, nil
}

func (s *BudgetService) DeletePurchase(ctx context.Context, id string) (core.PurchaseRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.PurchaseRecord{}, core.ErrPurchaseNotFound
	}
	p, err := s.store.DeletePurchase(ctx, id)
	if err != nil {
		return core.PurchaseRecord{}, fmt.Errorf("delete purchase %s: %w", id, err)
	}
	return p, nil
}

// SuggestCategory asks the suggester for a category, preferring the ones
// used in the current and previous month.
func (s *BudgetService) SuggestCategory(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", suggest.ErrEmptyDescription
	}

	known, err := s.knownCategories(ctx)
	if err != nil {
		// Suggestions still work without hints.
		s.logger.WarnContext(ctx, "Failed to load known categories", log.FieldError, err.Error())
	}

	category, err := s.suggester.SuggestCategory(ctx, description, known)
	if err != nil {
		if !errors.Is(err, suggest.ErrUnavailable) {
			s.logger.WarnContext(ctx, "Category suggestion failed",
				log.FieldOperation, log.OpSuggest,
				log.FieldError, err.Error())
		}
		return "", err
	}
	return category, nil
}

func (s *BudgetService) knownCategories(ctx context.Context) ([]string, error) {
	ym, err := s.CurrentYearMonth(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, m := range []core.YearMonth{ym, ym.Prev()} {
		purchases, err := s.store.ListPurchases(ctx, m)
		if err != nil {
			return nil, err
		}
		for _, p := range purchases {
			seen[p.Category] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// Ping checks the store when it supports health checks.
func (s *BudgetService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
