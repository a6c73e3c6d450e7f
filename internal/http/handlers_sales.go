package http

import (
	"net/http"

	"presupuesto/internal/core"
	"presupuesto/internal/log"
)

func (s *Server) handleSalesHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitQuery(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	history, err := s.budget.SalesHistory(r.Context(), limit)
	if err != nil {
		errorFor(r, log.OpList, err).Write(w)
		return
	}
	NewJSONResponse().JSON(toSalesHistoryResponse(history)).Write(w)
}

func (s *Server) handleGetSales(w http.ResponseWriter, r *http.Request) {
	ym, err := s.monthFromPath(r)
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}

	rec, found, err := s.budget.GetSales(r.Context(), ym)
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}
	if !found {
		rec = core.SalesRecord{YearMonth: ym}
	}
	gs, err := s.budget.GetSettings(r.Context())
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}
	NewJSONResponse().JSON(toSalesResponse(rec, found, gs.PurchasePercent)).Write(w)
}

func (s *Server) handleSetSales(w http.ResponseWriter, r *http.Request) {
	ym, err := s.monthFromPath(r)
	if err != nil {
		errorFor(r, log.OpUpdate, err).Write(w)
		return
	}

	var req salesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bodyError(err).Write(w)
		return
	}
	amount, err := req.Amount.Require("amount")
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	rec, err := s.budget.SetSales(r.Context(), ym, amount)
	if err != nil {
		errorFor(r, log.OpUpdate, err).Write(w)
		return
	}
	gs, err := s.budget.GetSettings(r.Context())
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Sales recorded",
		log.FieldYearMonth, ym.String(),
		log.FieldAmount, amount.String())
	NewJSONResponse().JSON(toSalesResponse(rec, true, gs.PurchasePercent)).Write(w)
}
