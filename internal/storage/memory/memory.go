package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ ports.Store = (*Store)(nil)

// Store keeps every record in process memory. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	settings    *core.GlobalSettings
	sales       map[core.YearMonth]core.SalesRecord
	commitments map[string]core.CommitmentRecord
	purchases   map[string]core.PurchaseRecord
	now         func() time.Time
}

func New() *Store {
	return &Store{
		sales:       make(map[core.YearMonth]core.SalesRecord),
		commitments: make(map[string]core.CommitmentRecord),
		purchases:   make(map[string]core.PurchaseRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// NewFromFiles returns a store seeded with monthly sales read from
// base/seed_sales.txt. Each line holds "YYYY-MM amount"; blanks and
// "#" comments are skipped, malformed lines are ignored.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_sales.txt")) {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		ym, err := core.ParseYearMonth(fields[0])
		if err != nil {
			continue
		}
		amount, err := core.ParseAmount(fields[1])
		if err != nil {
			continue
		}
		s.SetSales(context.Background(), ym, amount)
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) GetGlobalSettings(_ context.Context) (core.GlobalSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return core.DefaultSettings(), nil
	}
	return s.settings.Normalize(), nil
}

func (s *Store) UpsertGlobalSettings(_ context.Context, patch core.SettingsPatch) (core.GlobalSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := core.DefaultSettings()
	if s.settings != nil {
		current = *s.settings
	}
	next := current.Apply(patch)
	if err := next.Validate(); err != nil {
		return core.GlobalSettings{}, err
	}
	s.settings = &next
	return next, nil
}

func (s *Store) GetSales(_ context.Context, ym core.YearMonth) (core.SalesRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sales[ym]
	return rec, ok, nil
}

func (s *Store) ListRecentSales(_ context.Context, count int) ([]core.SalesRecord, error) {
	if count <= 0 {
		count = ports.DefaultRecentSales
	}
	s.mu.Lock()
	out := make([]core.SalesRecord, 0, len(s.sales))
	for _, rec := range s.sales {
		out = append(out, rec)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[j].YearMonth.Before(out[i].YearMonth) })
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (s *Store) SetSales(_ context.Context, ym core.YearMonth, amount decimal.Decimal) (core.SalesRecord, error) {
	rec := core.SalesRecord{YearMonth: ym, Amount: amount}
	if err := rec.Validate(); err != nil {
		return core.SalesRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if prev, ok := s.sales[ym]; ok {
		rec.CreatedAt = prev.CreatedAt
	}
	s.sales[ym] = rec
	return rec, nil
}

func (s *Store) ListCommitments(_ context.Context, ym core.YearMonth) ([]core.CommitmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CommitmentRecord
	for _, c := range s.commitments {
		if c.YearMonth == ym {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (s *Store) UpsertCommitment(_ context.Context, date core.Date, patch core.CommitmentPatch) (core.CommitmentRecord, error) {
	if err := date.Validate(); err != nil {
		return core.CommitmentRecord{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.CommitmentRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := date.String()
	current, ok := s.commitments[key]
	if !ok {
		current = core.NewCommitment(date)
		current.CreatedAt = s.now()
	}
	next := current.Apply(patch)
	next.UpdatedAt = s.now()
	s.commitments[key] = next
	return next, nil
}

func (s *Store) ListPurchases(_ context.Context, ym core.YearMonth) ([]core.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PurchaseRecord
	for _, p := range s.purchases {
		if p.YearMonth == ym {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) AddPurchase(_ context.Context, p core.PurchaseRecord) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.purchases[p.ID]; exists {
		return "", fmt.Errorf("purchase %s already exists", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.purchases[p.ID] = p
	return p.ID, nil
}

func (s *Store) DeletePurchase(_ context.Context, id string) (core.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok {
		return core.PurchaseRecord{}, fmt.Errorf("%w: %s", core.ErrPurchaseNotFound, id)
	}
	delete(s.purchases, id)
	return p, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
