package http

import (
	"net/http"

	"presupuesto/internal/log"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	gs, err := s.budget.GetSettings(r.Context())
	if err != nil {
		errorFor(r, log.OpRead, err).Write(w)
		return
	}
	NewJSONResponse().JSON(toSettingsResponse(gs)).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bodyError(err).Write(w)
		return
	}

	gs, err := s.budget.UpdateSettings(r.Context(), req.patch())
	if err != nil {
		errorFor(r, log.OpUpdate, err).Write(w)
		return
	}
	NewJSONResponse().JSON(toSettingsResponse(gs)).Write(w)
}
