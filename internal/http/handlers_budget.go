package http

import (
	"net/http"

	"presupuesto/internal/core"
	"presupuesto/internal/log"
)

// handleBudget reports the month's purchasing budget. use_paid selects paid
// instead of planned commitments.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	ym, err := s.monthFromPath(r)
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}
	usePaid, err := parseBoolQuery(r, "use_paid")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	report, err := s.budget.Report(r.Context(), ym, usePaid)
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}
	NewJSONResponse().JSON(toBudgetResponse(report)).Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ym, err := s.monthFromPath(r)
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}
	grid := ym.Grid()
	NewJSONResponse().JSON(gridResponse{
		YearMonth: ym,
		WeekCount: core.WeekCount(grid),
		Days:      grid,
	}).Write(w)
}
