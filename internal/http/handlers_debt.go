package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

type personRequest struct {
	Name string `json:"name"`
}

type debtRequest struct {
	PersonID    string `json:"personId"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.deps.Debts.ListPeople(r.Context(), session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": people})
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Debts.CreatePerson(r.Context(), session(r), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleRemovePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Debts.RemovePerson(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.deps.Debts.ListDebts(r.Context(), session(r), r.URL.Query().Get("personId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"debts": debts})
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind := core.DebtKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	d, err := s.deps.Debts.CreateDebt(r.Context(), session(r), strings.TrimSpace(req.PersonID), kind, amount, sanitizeInput(req.Description))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Debts.MarkPaid(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRemoveDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Debts.RemoveDebt(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDebtSummary(w http.ResponseWriter, r *http.Request) {
	people, totals, err := s.deps.Debts.Summary(r.Context(), session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": people, "totals": totals})
}
