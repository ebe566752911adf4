package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/budget"
	"fintrack/internal/core"
)

type budgetRequest struct {
	Category string `json:"category"`
	Month    string `json:"month"`
	Limit    string `json:"limit"`
}

type budgetPatchRequest struct {
	Category *string `json:"category"`
	Month    *string `json:"month"`
	Limit    *string `json:"limit"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.deps.Budgets.ListBudgets(r.Context(), session(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": budgets})
}

// handleBudgetReport returns the budgets of a month with spent, remaining,
// percentage and status derived from the month's expenses.
func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if month == "" {
		month = core.MonthOf(s.now())
	}
	lines, err := s.deps.Budgets.Report(r.Context(), session(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "budgets": lines})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := parseAmount(req.Limit)
	if err != nil {
		writeError(w, r, core.Invalid("limit", "must be a positive number"))
		return
	}
	b, err := s.deps.Budgets.CreateBudget(r.Context(), session(r), sanitizeInput(req.Category), strings.TrimSpace(req.Month), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Budgets.GetBudget(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch := budget.Patch{Category: optional(req.Category), Month: optional(req.Month)}
	if req.Limit != nil {
		limit, err := parseAmount(*req.Limit)
		if err != nil {
			writeError(w, r, core.Invalid("limit", "must be a positive number"))
			return
		}
		patch.Limit = &limit
	}
	b, err := s.deps.Budgets.UpdateBudget(r.Context(), session(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Budgets.DeleteBudget(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
