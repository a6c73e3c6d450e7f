package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func commitment(date string, planned, paid int64) CommitmentRecord {
	day, err := ParseDate(date)
	if err != nil {
		panic(err)
	}
	c := NewCommitment(day)
	c.Planned = amt(planned)
	c.Paid = amt(paid)
	return c
}

func purchase(id string, amount int64) PurchaseRecord {
	return PurchaseRecord{ID: id, Amount: amt(amount), Category: "Mercadería"}
}

func assertDecimal(t *testing.T, field string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}

func TestComputeSummary(t *testing.T) {
	commitments := []CommitmentRecord{
		commitment("2025-03-03", 10000, 10000),
		commitment("2025-03-10", 20000, 10000),
	}
	purchases := []PurchaseRecord{purchase("a", 4000), purchase("b", 6000)}

	tests := []struct {
		name          string
		usePaid       bool
		wantAvailable int64
		wantFinal     int64
		wantRatio     int64
	}{
		{"planned", false, 50000, 40000, 50},
		{"paid", true, 60000, 50000, 37},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ComputeSummary(amt(100000), 80, commitments, purchases, tt.usePaid)
			if err != nil {
				t.Fatalf("ComputeSummary error: %v", err)
			}
			assertDecimal(t, "GrossBudget", s.GrossBudget, amt(80000))
			assertDecimal(t, "AvailableForPurchases", s.AvailableForPurchases, amt(tt.wantAvailable))
			assertDecimal(t, "PurchasesTotal", s.PurchasesTotal, amt(10000))
			assertDecimal(t, "FinalAvailable", s.FinalAvailable, amt(tt.wantFinal))
			if got := s.ConsumptionRatio.IntPart(); got != tt.wantRatio {
				t.Errorf("ConsumptionRatio = %s, want ~%d", s.ConsumptionRatio, tt.wantRatio)
			}
			if s.Overspent() {
				t.Error("Overspent should be false")
			}
		})
	}
}

func TestComputeSummary_ZeroSales(t *testing.T) {
	s, err := ComputeSummary(decimal.Zero, 80, []CommitmentRecord{commitment("2025-03-03", 500, 0)}, nil, false)
	if err != nil {
		t.Fatalf("ComputeSummary error: %v", err)
	}
	assertDecimal(t, "GrossBudget", s.GrossBudget, decimal.Zero)
	assertDecimal(t, "ConsumptionRatio", s.ConsumptionRatio, decimal.Zero)
	assertDecimal(t, "FinalAvailable", s.FinalAvailable, amt(-500))
}

func TestComputeSummary_Overspend(t *testing.T) {
	s, err := ComputeSummary(amt(1000), 100, nil, []PurchaseRecord{purchase("a", 1500)}, false)
	if err != nil {
		t.Fatalf("ComputeSummary error: %v", err)
	}
	assertDecimal(t, "ConsumptionRatio", s.ConsumptionRatio, amt(150))
	assertDecimal(t, "DisplayRatio", s.DisplayRatio(), amt(100))
	if !s.Overspent() {
		t.Error("Overspent should be true")
	}
}

func TestComputeSummary_NothingSpent(t *testing.T) {
	// No commitments and no purchases leave the budget untouched.
	s, err := ComputeSummary(amt(1000), 50, nil, nil, false)
	if err != nil {
		t.Fatalf("ComputeSummary error: %v", err)
	}
	assertDecimal(t, "ConsumptionRatio", s.ConsumptionRatio, decimal.Zero)
	assertDecimal(t, "DisplayRatio", s.DisplayRatio(), decimal.Zero)
}

func TestComputeSummary_NegativeInputs(t *testing.T) {
	tests := []struct {
		name        string
		sales       decimal.Decimal
		percent     int
		commitments []CommitmentRecord
		purchases   []PurchaseRecord
	}{
		{name: "sales", sales: amt(-1), percent: 80},
		{name: "percent", sales: amt(100), percent: -5},
		{name: "planned", sales: amt(100), percent: 80, commitments: []CommitmentRecord{commitment("2025-03-01", -1, 0)}},
		{name: "paid", sales: amt(100), percent: 80, commitments: []CommitmentRecord{commitment("2025-03-01", 0, -1)}},
		{name: "purchase", sales: amt(100), percent: 80, purchases: []PurchaseRecord{purchase("x", -10)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeSummary(tt.sales, tt.percent, tt.commitments, tt.purchases, false)
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("err = %v, want ErrInvalidAmount", err)
			}
		})
	}
}

func TestAggregateByWeek(t *testing.T) {
	grid, err := BuildMonthGrid("2025-03")
	if err != nil {
		t.Fatalf("BuildMonthGrid error: %v", err)
	}
	// March 2025 grid starts Saturday 2025-03-01, so the 3rd is in week 0 and
	// the 10th and 12th in week 1.
	commitments := []CommitmentRecord{
		commitment("2025-03-12", 40, 40),
		commitment("2025-03-03", 100, 50),
		commitment("2025-03-10", 60, 0),
		commitment("2025-03-20", 0, 0),
		commitment("2025-04-02", 999, 999), // filler day, ignored
	}

	weeks := AggregateByWeek(grid, commitments)
	if len(weeks) != 2 {
		t.Fatalf("len(weeks) = %d, want 2: %v", len(weeks), weeks)
	}

	w0, ok := weeks[0]
	if !ok {
		t.Fatal("week 0 missing")
	}
	assertDecimal(t, "week0.Planned", w0.Planned, amt(100))
	assertDecimal(t, "week0.Paid", w0.Paid, amt(50))
	assertDecimal(t, "week0.Difference", w0.Difference(), amt(50))

	w1 := weeks[1]
	assertDecimal(t, "week1.Planned", w1.Planned, amt(100))
	assertDecimal(t, "week1.Paid", w1.Paid, amt(40))

	if _, ok := weeks[2]; ok {
		t.Error("week 2 only has a zero commitment and should be omitted")
	}

	sorted := SortedWeeks(weeks)
	if len(sorted) != 2 || sorted[0].WeekIndex != 0 || sorted[1].WeekIndex != 1 {
		t.Errorf("SortedWeeks = %+v", sorted)
	}

	total := MonthTotals(grid, commitments)
	assertDecimal(t, "month.Planned", total.Planned, amt(200))
	assertDecimal(t, "month.Paid", total.Paid, amt(90))
}

func TestIndexCommitments_LastUpdateWins(t *testing.T) {
	older := commitment("2025-03-05", 10, 0)
	older.UpdatedAt = time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	newer := commitment("2025-03-05", 20, 5)
	newer.UpdatedAt = older.UpdatedAt.Add(time.Hour)

	idx := IndexCommitments([]CommitmentRecord{newer, older})
	got, ok := idx.Lookup(older.Date)
	if !ok {
		t.Fatal("commitment not indexed")
	}
	assertDecimal(t, "Planned", got.Planned, amt(20))
}

func TestGrossBudget(t *testing.T) {
	assertDecimal(t, "GrossBudget", GrossBudget(amt(1234), 80), decimal.RequireFromString("987.2"))
	assertDecimal(t, "PurchaseBudget", SalesRecord{Amount: amt(500)}.PurchaseBudget(100), amt(500))
}
