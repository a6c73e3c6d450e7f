package sheets

import (
	"context"
	"time"

	"presupuesto/internal/core"

	"github.com/shopspring/decimal"
)

// MonthRow is one exported line of the budget spreadsheet.
type MonthRow struct {
	YearMonth        core.YearMonth
	Sales            decimal.Decimal
	PurchasePercent  int
	GrossBudget      decimal.Decimal
	Planned          decimal.Decimal
	Paid             decimal.Decimal
	Purchases        decimal.Decimal
	FinalAvailable   decimal.Decimal
	ConsumptionRatio decimal.Decimal
	ExportedAt       time.Time
}

// Header is the column layout written by exporters, in order.
var Header = []string{
	"Mes", "Ventas", "% compras", "Presupuesto bruto", "Comprometido",
	"Pagado", "Compras", "Disponible final", "Consumo %", "Actualizado",
}

// Values renders the row in Header order.
func (r MonthRow) Values() []any {
	return []any{
		r.YearMonth.String(),
		r.Sales.InexactFloat64(),
		r.PurchasePercent,
		r.GrossBudget.InexactFloat64(),
		r.Planned.InexactFloat64(),
		r.Paid.InexactFloat64(),
		r.Purchases.InexactFloat64(),
		r.FinalAvailable.InexactFloat64(),
		r.ConsumptionRatio.Round(2).InexactFloat64(),
		r.ExportedAt.UTC().Format(time.RFC3339),
	}
}

// Ports for outbound adapters.
type (
	// BudgetExporter writes or replaces the row of a month.
	BudgetExporter interface {
		ExportMonth(ctx context.Context, row MonthRow) (rowRef string, err error)
	}
)
