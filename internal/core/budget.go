package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

type (
	// BudgetSummary is the derived purchasing budget of a month.
	BudgetSummary struct {
		GrossBudget           decimal.Decimal
		CommittedConsidered   decimal.Decimal
		AvailableForPurchases decimal.Decimal
		PurchasesTotal        decimal.Decimal
		FinalAvailable        decimal.Decimal
		// ConsumptionRatio is the spent share of GrossBudget as a percentage.
		// It is not clamped; above 100 means over-spend.
		ConsumptionRatio decimal.Decimal
	}

	// WeekTotals accumulates commitments of one grid week.
	WeekTotals struct {
		Planned decimal.Decimal
		Paid    decimal.Decimal
	}

	// WeekTotal is a WeekTotals tagged with its grid week, for ordered output.
	WeekTotal struct {
		WeekIndex int
		WeekTotals
	}

	// CommitmentIndex maps a YYYY-MM-DD key to the commitment of that day.
	CommitmentIndex map[string]CommitmentRecord
)

// GrossBudget returns sales * percent / 100.
func GrossBudget(sales decimal.Decimal, percent int) decimal.Decimal {
	return sales.Mul(decimal.NewFromInt(int64(percent))).Div(hundred)
}

// ComputeSummary derives a month's budget. Percent is expected in [1,100]; only
// negative inputs are rejected here.
func ComputeSummary(sales decimal.Decimal, percent int, commitments []CommitmentRecord, purchases []PurchaseRecord, usePaid bool) (BudgetSummary, error) {
	if err := ValidateAmount("sales", sales); err != nil {
		return BudgetSummary{}, err
	}
	if percent < 0 {
		return BudgetSummary{}, fmt.Errorf("%w: percent must not be negative (got %d)", ErrInvalidAmount, percent)
	}

	committed := decimal.Zero
	for _, c := range commitments {
		if err := ValidateAmount("planned "+c.Date.String(), c.Planned); err != nil {
			return BudgetSummary{}, err
		}
		if err := ValidateAmount("paid "+c.Date.String(), c.Paid); err != nil {
			return BudgetSummary{}, err
		}
		if usePaid {
			committed = committed.Add(c.Paid)
		} else {
			committed = committed.Add(c.Planned)
		}
	}

	purchased := decimal.Zero
	for _, p := range purchases {
		if err := ValidateAmount("purchase "+p.ID, p.Amount); err != nil {
			return BudgetSummary{}, err
		}
		purchased = purchased.Add(p.Amount)
	}

	gross := GrossBudget(sales, percent)
	available := gross.Sub(committed)
	final := available.Sub(purchased)

	ratio := decimal.Zero
	if gross.IsPositive() {
		ratio = gross.Sub(final).Mul(hundred).Div(gross)
	}

	return BudgetSummary{
		GrossBudget:           gross,
		CommittedConsidered:   committed,
		AvailableForPurchases: available,
		PurchasesTotal:        purchased,
		FinalAvailable:        final,
		ConsumptionRatio:      ratio,
	}, nil
}

// DisplayRatio clamps ConsumptionRatio to [0,100] for progress bars.
func (s BudgetSummary) DisplayRatio() decimal.Decimal {
	if s.ConsumptionRatio.IsNegative() {
		return decimal.Zero
	}
	if s.ConsumptionRatio.GreaterThan(hundred) {
		return hundred
	}
	return s.ConsumptionRatio
}

func (s BudgetSummary) Overspent() bool {
	return s.FinalAvailable.IsNegative()
}

// IndexCommitments keys commitments by date. Records are sorted by date first,
// and on duplicate dates the record updated last wins.
func IndexCommitments(commitments []CommitmentRecord) CommitmentIndex {
	sorted := make([]CommitmentRecord, len(commitments))
	copy(sorted, commitments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.Before(sorted[j].Date.Time)
		}
		return sorted[i].UpdatedAt.Before(sorted[j].UpdatedAt)
	})

	idx := make(CommitmentIndex, len(sorted))
	for _, c := range sorted {
		idx[c.Date.String()] = c
	}
	return idx
}

// Records returns one commitment per date in ascending date order.
func (idx CommitmentIndex) Records() []CommitmentRecord {
	out := make([]CommitmentRecord, 0, len(idx))
	for _, c := range idx {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// Lookup returns the commitment of a day, if any.
func (idx CommitmentIndex) Lookup(d Date) (CommitmentRecord, bool) {
	c, ok := idx[d.String()]
	return c, ok
}

// AggregateByWeek sums planned and paid per grid week over current-month days.
// Weeks whose commitments are all zero get no entry.
func AggregateByWeek(grid []DayRecord, commitments []CommitmentRecord) map[int]WeekTotals {
	idx := IndexCommitments(commitments)
	weeks := make(map[int]WeekTotals)
	for _, day := range grid {
		if !day.IsCurrentMonth {
			continue
		}
		c, ok := idx.Lookup(day.Date)
		if !ok || (c.Planned.IsZero() && c.Paid.IsZero()) {
			continue
		}
		w, ok := weeks[day.WeekIndex]
		if !ok {
			w = WeekTotals{Planned: decimal.Zero, Paid: decimal.Zero}
		}
		w.Planned = w.Planned.Add(c.Planned)
		w.Paid = w.Paid.Add(c.Paid)
		weeks[day.WeekIndex] = w
	}
	return weeks
}

// MonthTotals sums planned and paid over the current-month days of the grid.
func MonthTotals(grid []DayRecord, commitments []CommitmentRecord) WeekTotals {
	total := WeekTotals{Planned: decimal.Zero, Paid: decimal.Zero}
	for _, w := range AggregateByWeek(grid, commitments) {
		total.Planned = total.Planned.Add(w.Planned)
		total.Paid = total.Paid.Add(w.Paid)
	}
	return total
}

// SortedWeeks flattens AggregateByWeek output in ascending week order.
func SortedWeeks(weeks map[int]WeekTotals) []WeekTotal {
	out := make([]WeekTotal, 0, len(weeks))
	for i, w := range weeks {
		out = append(out, WeekTotal{WeekIndex: i, WeekTotals: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekIndex < out[j].WeekIndex })
	return out
}

// Difference is planned minus paid.
func (w WeekTotals) Difference() decimal.Decimal {
	return w.Planned.Sub(w.Paid)
}
