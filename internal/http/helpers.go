package http

import (
	"strings"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/services"

	"github.com/shopspring/decimal"
)

// sanitizeInput removes control characters except tab, newline and carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// money is how every amount leaves the API: the exact decimal and its ARS rendering.
type money struct {
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

func moneyOf(d decimal.Decimal) money {
	return money{Amount: d.StringFixed(2), Display: core.FormatARS(d)}
}

type (
	settingsResponse struct {
		PurchasePercent int    `json:"purchasePercent"`
		Timezone        string `json:"timezone"`
	}

	salesResponse struct {
		YearMonth      core.YearMonth `json:"yearMonth"`
		Found          bool           `json:"found"`
		Amount         money          `json:"amount"`
		PurchaseBudget money          `json:"purchaseBudget"`
		UpdatedAt      *time.Time     `json:"updatedAt,omitempty"`
	}

	salesHistoryEntry struct {
		YearMonth      core.YearMonth `json:"yearMonth"`
		Amount         money          `json:"amount"`
		PurchaseBudget money          `json:"purchaseBudget"`
	}

	salesHistoryResponse struct {
		PurchasePercent int                 `json:"purchasePercent"`
		Entries         []salesHistoryEntry `json:"entries"`
	}

	summaryResponse struct {
		GrossBudget           money  `json:"grossBudget"`
		CommittedConsidered   money  `json:"committedConsidered"`
		AvailableForPurchases money  `json:"availableForPurchases"`
		PurchasesTotal        money  `json:"purchasesTotal"`
		FinalAvailable        money  `json:"finalAvailable"`
		ConsumptionRatio      string `json:"consumptionRatio"`
		DisplayRatio          string `json:"displayRatio"`
		Overspent             bool   `json:"overspent"`
	}

	budgetResponse struct {
		YearMonth       core.YearMonth  `json:"yearMonth"`
		UsePaid         bool            `json:"usePaid"`
		HasSales        bool            `json:"hasSales"`
		Sales           money           `json:"sales"`
		PurchasePercent int             `json:"purchasePercent"`
		PlannedTotal    money           `json:"plannedTotal"`
		PaidTotal       money           `json:"paidTotal"`
		Summary         summaryResponse `json:"summary"`
	}

	gridResponse struct {
		YearMonth core.YearMonth   `json:"yearMonth"`
		WeekCount int              `json:"weekCount"`
		Days      []core.DayRecord `json:"days"`
	}

	commitmentResponse struct {
		Date       core.Date      `json:"date"`
		YearMonth  core.YearMonth `json:"yearMonth"`
		Planned    money          `json:"planned"`
		Paid       money          `json:"paid"`
		Difference money          `json:"difference"`
	}

	calendarDayResponse struct {
		core.DayRecord
		Commitment *commitmentResponse `json:"commitment,omitempty"`
	}

	totalsResponse struct {
		Planned    money `json:"planned"`
		Paid       money `json:"paid"`
		Difference money `json:"difference"`
	}

	weekTotalResponse struct {
		WeekIndex int `json:"weekIndex"`
		totalsResponse
	}

	commitmentCalendarResponse struct {
		YearMonth core.YearMonth        `json:"yearMonth"`
		WeekCount int                   `json:"weekCount"`
		Days      []calendarDayResponse `json:"days"`
		Weeks     []weekTotalResponse   `json:"weeks"`
		Totals    totalsResponse        `json:"totals"`
	}

	purchaseResponse struct {
		ID        string         `json:"id"`
		Date      core.Date      `json:"date"`
		YearMonth core.YearMonth `json:"yearMonth"`
		Amount    money          `json:"amount"`
		Category  string         `json:"category"`
		Note      string         `json:"note,omitempty"`
		CreatedAt *time.Time     `json:"createdAt,omitempty"`
	}

	purchaseListResponse struct {
		YearMonth core.YearMonth     `json:"yearMonth"`
		Purchases []purchaseResponse `json:"purchases"`
		Total     money              `json:"total"`
	}

	suggestResponse struct {
		Category string `json:"category"`
	}
)

func toSettingsResponse(gs core.GlobalSettings) settingsResponse {
	return settingsResponse{PurchasePercent: gs.PurchasePercent, Timezone: gs.Timezone}
}

func toSalesResponse(rec core.SalesRecord, found bool, percent int) salesResponse {
	out := salesResponse{
		YearMonth:      rec.YearMonth,
		Found:          found,
		Amount:         moneyOf(rec.Amount),
		PurchaseBudget: moneyOf(rec.PurchaseBudget(percent)),
	}
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func toSalesHistoryResponse(h services.SalesHistory) salesHistoryResponse {
	out := salesHistoryResponse{
		PurchasePercent: h.Settings.PurchasePercent,
		Entries:         make([]salesHistoryEntry, len(h.Entries)),
	}
	for i, e := range h.Entries {
		out.Entries[i] = salesHistoryEntry{
			YearMonth:      e.YearMonth,
			Amount:         moneyOf(e.Amount),
			PurchaseBudget: moneyOf(e.PurchaseBudget),
		}
	}
	return out
}

func toBudgetResponse(r services.BudgetReport) budgetResponse {
	s := r.Summary
	return budgetResponse{
		YearMonth:       r.YearMonth,
		UsePaid:         r.UsePaid,
		HasSales:        r.HasSales,
		Sales:           moneyOf(r.Sales),
		PurchasePercent: r.Settings.PurchasePercent,
		PlannedTotal:    moneyOf(r.PlannedTotal),
		PaidTotal:       moneyOf(r.PaidTotal),
		Summary: summaryResponse{
			GrossBudget:           moneyOf(s.GrossBudget),
			CommittedConsidered:   moneyOf(s.CommittedConsidered),
			AvailableForPurchases: moneyOf(s.AvailableForPurchases),
			PurchasesTotal:        moneyOf(s.PurchasesTotal),
			FinalAvailable:        moneyOf(s.FinalAvailable),
			ConsumptionRatio:      s.ConsumptionRatio.StringFixed(2),
			DisplayRatio:          s.DisplayRatio().StringFixed(2),
			Overspent:             s.Overspent(),
		},
	}
}

func toCommitmentResponse(c core.CommitmentRecord) commitmentResponse {
	return commitmentResponse{
		Date:       c.Date,
		YearMonth:  c.YearMonth,
		Planned:    moneyOf(c.Planned),
		Paid:       moneyOf(c.Paid),
		Difference: moneyOf(c.Difference()),
	}
}

func toTotalsResponse(w core.WeekTotals) totalsResponse {
	return totalsResponse{
		Planned:    moneyOf(w.Planned),
		Paid:       moneyOf(w.Paid),
		Difference: moneyOf(w.Difference()),
	}
}

func toCommitmentCalendarResponse(c services.CommitmentCalendar) commitmentCalendarResponse {
	out := commitmentCalendarResponse{
		YearMonth: c.YearMonth,
		WeekCount: c.WeekCount,
		Days:      make([]calendarDayResponse, len(c.Days)),
		Weeks:     make([]weekTotalResponse, len(c.Weeks)),
		Totals:    toTotalsResponse(c.Totals),
	}
	for i, d := range c.Days {
		out.Days[i] = calendarDayResponse{DayRecord: d.DayRecord}
		if d.HasCommitment {
			cr := toCommitmentResponse(d.Commitment)
			out.Days[i].Commitment = &cr
		}
	}
	for i, w := range c.Weeks {
		out.Weeks[i] = weekTotalResponse{WeekIndex: w.WeekIndex, totalsResponse: toTotalsResponse(w.WeekTotals)}
	}
	return out
}

func toPurchaseResponse(p core.PurchaseRecord) purchaseResponse {
	out := purchaseResponse{
		ID:        p.ID,
		Date:      p.Date,
		YearMonth: p.YearMonth,
		Amount:    moneyOf(p.Amount),
		Category:  p.Category,
		Note:      p.Note,
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

func toPurchaseListResponse(l services.PurchaseList) purchaseListResponse {
	out := purchaseListResponse{
		YearMonth: l.YearMonth,
		Purchases: make([]purchaseResponse, len(l.Purchases)),
		Total:     moneyOf(l.Total),
	}
	for i, p := range l.Purchases {
		out.Purchases[i] = toPurchaseResponse(p)
	}
	return out
}
