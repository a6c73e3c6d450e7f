package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"presupuesto/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "presupuesto.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustYM(t *testing.T, s string) core.YearMonth {
	t.Helper()
	ym, err := core.ParseYearMonth(s)
	if err != nil {
		t.Fatalf("ParseYearMonth(%q): %v", s, err)
	}
	return ym
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestSQLiteRepository_Migrations(t *testing.T) {
	repo := newTestRepository(t)
	if repo.SchemaVersion() != 1 {
		t.Errorf("SchemaVersion = %d, want 1", repo.SchemaVersion())
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping error: %v", err)
	}
}

func TestSQLiteRepository_Settings(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	got, err := repo.GetGlobalSettings(ctx)
	if err != nil {
		t.Fatalf("GetGlobalSettings error: %v", err)
	}
	if got != core.DefaultSettings() {
		t.Errorf("defaults = %+v", got)
	}

	pct := 65
	saved, err := repo.UpsertGlobalSettings(ctx, core.SettingsPatch{PurchasePercent: &pct})
	if err != nil {
		t.Fatalf("UpsertGlobalSettings error: %v", err)
	}
	if saved.PurchasePercent != 65 || saved.Timezone != core.DefaultTimezone {
		t.Errorf("saved = %+v", saved)
	}

	bad := 0
	if _, err := repo.UpsertGlobalSettings(ctx, core.SettingsPatch{PurchasePercent: &bad}); !errors.Is(err, core.ErrInvalidPercent) {
		t.Errorf("invalid percent err = %v", err)
	}

	got, err = repo.GetGlobalSettings(ctx)
	if err != nil {
		t.Fatalf("GetGlobalSettings error: %v", err)
	}
	if got.PurchasePercent != 65 {
		t.Errorf("PurchasePercent = %d, want 65", got.PurchasePercent)
	}
}

func TestSQLiteRepository_Sales(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	march := mustYM(t, "2025-03")

	if _, found, err := repo.GetSales(ctx, march); err != nil || found {
		t.Fatalf("GetSales on empty = found %v, err %v", found, err)
	}

	for i, token := range []string{"2025-01", "2025-02", "2025-03"} {
		if _, err := repo.SetSales(ctx, mustYM(t, token), decimal.NewFromInt(int64(1000*(i+1)))); err != nil {
			t.Fatalf("SetSales(%s) error: %v", token, err)
		}
	}
	if _, err := repo.SetSales(ctx, march, decimal.RequireFromString("4500.50")); err != nil {
		t.Fatalf("SetSales overwrite error: %v", err)
	}

	rec, found, err := repo.GetSales(ctx, march)
	if err != nil || !found {
		t.Fatalf("GetSales = found %v, err %v", found, err)
	}
	if !rec.Amount.Equal(decimal.RequireFromString("4500.5")) {
		t.Errorf("Amount = %s, want 4500.5", rec.Amount)
	}

	recent, err := repo.ListRecentSales(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentSales error: %v", err)
	}
	if len(recent) != 2 || recent[0].YearMonth != march || recent[1].YearMonth.String() != "2025-02" {
		t.Errorf("ListRecentSales = %+v", recent)
	}

	if _, err := repo.SetSales(ctx, march, decimal.NewFromInt(-1)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative sales err = %v", err)
	}
}

func TestSQLiteRepository_Commitments(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	day := mustDate(t, "2025-03-07")

	planned := decimal.NewFromInt(300)
	first, err := repo.UpsertCommitment(ctx, day, core.CommitmentPatch{Planned: &planned})
	if err != nil {
		t.Fatalf("UpsertCommitment error: %v", err)
	}
	if !first.Paid.IsZero() {
		t.Errorf("new commitment Paid = %s, want 0", first.Paid)
	}

	paid := decimal.NewFromInt(100)
	second, err := repo.UpsertCommitment(ctx, day, core.CommitmentPatch{Paid: &paid})
	if err != nil {
		t.Fatalf("UpsertCommitment error: %v", err)
	}
	if !second.Planned.Equal(planned) || !second.Paid.Equal(paid) {
		t.Errorf("merged = %+v", second)
	}

	if _, err := repo.UpsertCommitment(ctx, mustDate(t, "2025-04-01"), core.CommitmentPatch{Planned: &planned}); err != nil {
		t.Fatalf("UpsertCommitment other month error: %v", err)
	}

	list, err := repo.ListCommitments(ctx, mustYM(t, "2025-03"))
	if err != nil {
		t.Fatalf("ListCommitments error: %v", err)
	}
	if len(list) != 1 || list[0].Date.String() != "2025-03-07" || list[0].YearMonth.String() != "2025-03" {
		t.Errorf("ListCommitments = %+v", list)
	}

	if _, err := repo.UpsertCommitment(ctx, day, core.CommitmentPatch{}); !errors.Is(err, core.ErrEmptyPatch) {
		t.Errorf("empty patch err = %v", err)
	}
}

func TestSQLiteRepository_Purchases(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	march := mustYM(t, "2025-03")

	add := func(date string, amount int64) string {
		t.Helper()
		id, err := repo.AddPurchase(ctx, core.PurchaseRecord{
			Date:      mustDate(t, date),
			YearMonth: march,
			Amount:    decimal.NewFromInt(amount),
			Category:  "Mercadería",
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("AddPurchase(%s) error: %v", date, err)
		}
		return id
	}

	early := add("2025-03-02", 100)
	late := add("2025-03-20", 250)

	list, err := repo.ListPurchases(ctx, march)
	if err != nil {
		t.Fatalf("ListPurchases error: %v", err)
	}
	if len(list) != 2 || list[0].ID != late || list[1].ID != early {
		t.Fatalf("ListPurchases order = %+v", list)
	}

	deleted, err := repo.DeletePurchase(ctx, early)
	if err != nil {
		t.Fatalf("DeletePurchase error: %v", err)
	}
	if deleted.YearMonth != march || !deleted.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("deleted = %+v", deleted)
	}

	if _, err := repo.DeletePurchase(ctx, early); !errors.Is(err, core.ErrPurchaseNotFound) {
		t.Errorf("second delete err = %v, want ErrPurchaseNotFound", err)
	}

	_, err = repo.AddPurchase(ctx, core.PurchaseRecord{Date: mustDate(t, "2025-03-02"), YearMonth: march, Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, core.ErrEmptyCategory) {
		t.Errorf("missing category err = %v", err)
	}
}
