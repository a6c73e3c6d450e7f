package ports

import (
	"context"

	"presupuesto/internal/core"

	"github.com/shopspring/decimal"
)

// Ports for the record stores consumed by services.
type (
	SettingsReader interface {
		// GetGlobalSettings returns the stored settings merged over the defaults.
		GetGlobalSettings(ctx context.Context) (core.GlobalSettings, error)
	}

	SettingsWriter interface {
		// UpsertGlobalSettings merges the patch into the stored settings and returns the result.
		UpsertGlobalSettings(ctx context.Context, patch core.SettingsPatch) (core.GlobalSettings, error)
	}

	SalesReader interface {
		// GetSales returns the sales of a month; found is false when none were recorded.
		GetSales(ctx context.Context, ym core.YearMonth) (rec core.SalesRecord, found bool, err error)
		// ListRecentSales returns up to count records, most recent month first.
		ListRecentSales(ctx context.Context, count int) ([]core.SalesRecord, error)
	}

	SalesWriter interface {
		SetSales(ctx context.Context, ym core.YearMonth, amount decimal.Decimal) (core.SalesRecord, error)
	}

	CommitmentReader interface {
		ListCommitments(ctx context.Context, ym core.YearMonth) ([]core.CommitmentRecord, error)
	}

	CommitmentWriter interface {
		// UpsertCommitment merges the patch into the day's record, creating it
		// with zero planned and paid when absent.
		UpsertCommitment(ctx context.Context, date core.Date, patch core.CommitmentPatch) (core.CommitmentRecord, error)
	}

	PurchaseReader interface {
		// ListPurchases returns the purchases of a month, newest date first.
		ListPurchases(ctx context.Context, ym core.YearMonth) ([]core.PurchaseRecord, error)
	}

	PurchaseWriter interface {
		AddPurchase(ctx context.Context, p core.PurchaseRecord) (id string, err error)
		// DeletePurchase removes a purchase and returns it. Unknown ids yield core.ErrPurchaseNotFound.
		DeletePurchase(ctx context.Context, id string) (core.PurchaseRecord, error)
	}

	// Store is the full record store behind the budgeting service.
	Store interface {
		SettingsReader
		SettingsWriter
		SalesReader
		SalesWriter
		CommitmentReader
		CommitmentWriter
		PurchaseReader
		PurchaseWriter
		Close() error
	}
)

// DefaultRecentSales is the history length used when callers pass a non-positive count.
const DefaultRecentSales = 12
