package http

import (
	"net/http"

	"presupuesto/internal/core"
	"presupuesto/internal/log"
)

func (s *Server) handleCommitmentCalendar(w http.ResponseWriter, r *http.Request) {
	ym, err := s.monthFromPath(r)
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}

	cal, err := s.budget.Calendar(r.Context(), ym)
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}
	NewJSONResponse().JSON(toCommitmentCalendarResponse(cal)).Write(w)
}

// handlePatchCommitment updates planned and/or paid of one day. Omitted
// fields keep their stored value.
func (s *Server) handlePatchCommitment(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDate(r.PathValue("date"))
	if err != nil {
		errorFor(r, log.OpUpdate, err).Write(w)
		return
	}

	var req commitmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bodyError(err).Write(w)
		return
	}

	rec, err := s.budget.UpdateCommitment(r.Context(), date, req.patch())
	if err != nil {
		errorFor(r, log.OpUpdate, err).Write(w)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Commitment updated",
		log.FieldDate, date.String(),
		"planned", rec.Planned.String(),
		"paid", rec.Paid.String())
	NewJSONResponse().JSON(toCommitmentResponse(rec)).Write(w)
}
