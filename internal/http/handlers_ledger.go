package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type createAccountRequest struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	InitialBalance string `json:"initialBalance"`
}

type renameAccountRequest struct {
	Name string `json:"name"`
}

type balanceRequest struct {
	Balance string `json:"balance"`
}

type adjustmentRequest struct {
	Delta string `json:"delta"`
}

// transactionRequest carries amounts and dates as strings so both decimal
// separators and every accepted date layout work.
type transactionRequest struct {
	AccountID   string `json:"accountId"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type transactionPatchRequest struct {
	AccountID   *string `json:"accountId"`
	Kind        *string `json:"kind"`
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

type categoryRequest struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Color string `json:"color"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.deps.Ledger.ListAccounts(r.Context(), session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := parseBalance("initialBalance", req.InitialBalance)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind := core.AccountKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	account, err := s.deps.Ledger.CreateAccount(r.Context(), session(r), sanitizeInput(req.Name), kind, balance)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.deps.Ledger.GetAccount(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	var req renameAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	account, err := s.deps.Ledger.RenameAccount(r.Context(), session(r), chi.URLParam(r, "id"), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeleteAccount(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Balance) == "" {
		writeError(w, r, core.Invalid("balance", "required"))
		return
	}
	balance, err := parseBalance("balance", req.Balance)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondAccountAfter(w, r, s.deps.Ledger.SetBalance(r.Context(), session(r), chi.URLParam(r, "id"), balance))
}

func (s *Server) handleApplyDelta(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	delta, err := parseBalance("delta", req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondAccountAfter(w, r, s.deps.Ledger.ApplyDelta(r.Context(), session(r), chi.URLParam(r, "id"), delta))
}

// respondAccountAfter writes the account as it is after a balance change.
func (s *Server) respondAccountAfter(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.handleGetAccount(w, r)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txns, err := s.deps.Ledger.ListTransactions(r.Context(), session(r), r.URL.Query().Get("accountId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": filter.Apply(txns)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := s.draftFrom(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Ledger.CreateTransaction(r.Context(), session(r), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) draftFrom(req transactionRequest) (core.Draft, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Draft{}, err
	}
	date := core.DateOf(s.now())
	if strings.TrimSpace(req.Date) != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			return core.Draft{}, err
		}
	}
	kind := core.TransactionKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		return core.Draft{}, core.ErrInvalidKind
	}
	return core.Draft{
		AccountID:   strings.TrimSpace(req.AccountID),
		Kind:        kind,
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Ledger.GetTransaction(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := patchFrom(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Ledger.UpdateTransaction(r.Context(), session(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func patchFrom(req transactionPatchRequest) (ledger.TransactionPatch, error) {
	patch := ledger.TransactionPatch{
		AccountID:   optional(req.AccountID),
		Category:    optional(req.Category),
		Description: optional(req.Description),
	}
	if req.Kind != nil {
		k := core.TransactionKind(strings.ToLower(strings.TrimSpace(*req.Kind)))
		if !k.Valid() {
			return ledger.TransactionPatch{}, core.ErrInvalidKind
		}
		patch.Kind = &k
	}
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			return ledger.TransactionPatch{}, err
		}
		patch.Amount = &amount
	}
	if req.Date != nil {
		date, err := core.ParseDate(*req.Date)
		if err != nil {
			return ledger.TransactionPatch{}, err
		}
		patch.Date = &date
	}
	return patch, nil
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeleteTransaction(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Ledger.Categories(r.Context(), session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	kind := core.CategoryKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	c, err := s.deps.Ledger.CreateCategory(r.Context(), session(r), sanitizeInput(req.Name), kind, strings.TrimSpace(req.Color))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
