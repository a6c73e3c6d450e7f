package http

import (
	"net/http"

	"presupuesto/internal/log"
)

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	ym, err := s.monthFromPath(r)
	if err != nil {
		errorFor(r, log.OpList, err).Write(w)
		return
	}

	list, err := s.budget.ListPurchases(r.Context(), ym)
	if err != nil {
		errorFor(r, log.OpList, err).Write(w)
		return
	}
	NewJSONResponse().JSON(toPurchaseListResponse(list)).Write(w)
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bodyError(err).Write(w)
		return
	}
	p, err := req.record()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.budget.AddPurchase(r.Context(), p)
	if err != nil {
		errorFor(r, log.OpCreate, err).Write(w)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Purchase created",
		log.FieldPurchaseID, created.ID,
		log.FieldYearMonth, created.YearMonth.String(),
		log.FieldAmount, created.Amount.String(),
		log.FieldCategory, created.Category)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/purchases/"+created.ID).
		JSON(toPurchaseResponse(created)).
		Write(w)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))

	deleted, err := s.budget.DeletePurchase(r.Context(), id)
	if err != nil {
		errorFor(r, log.OpDelete, err).Write(w)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Purchase deleted",
		log.FieldPurchaseID, deleted.ID,
		log.FieldYearMonth, deleted.YearMonth.String())
	NewJSONResponse().JSON(toPurchaseResponse(deleted)).Write(w)
}

func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		bodyError(err).Write(w)
		return
	}

	category, err := s.budget.SuggestCategory(r.Context(), sanitizeInput(req.Description))
	if err != nil {
		errorFor(r, log.OpSuggest, err).Write(w)
		return
	}
	NewJSONResponse().JSON(suggestResponse{Category: category}).Write(w)
}
