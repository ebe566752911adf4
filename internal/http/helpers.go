package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/csvimport"
	"fintrack/internal/log"
)

// OwnerHeader carries the owner key every /api request is scoped to.
const OwnerHeader = "X-Owner-ID"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Field   string               `json:"field,omitempty"`
	Rows    []csvimport.RowError `json:"rows,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeError maps engine error kinds onto status codes: validation 422,
// not found 404, anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *core.ValidationError
		noRows     *csvimport.NoValidRowsError
	)
	switch {
	case errors.As(err, &noRows):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "invalid_csv", Message: err.Error(), Rows: noRows.Errors,
		})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation_failed", Message: err.Error(), Field: validation.Field,
		})
	case errors.Is(err, core.ErrValidation):
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// session reads the owner set by requireOwner.
func session(r *http.Request) core.Session {
	return core.Session{Owner: strings.TrimSpace(r.Header.Get(OwnerHeader))}
}

// requireOwner rejects /api requests that carry no owner key.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := session(r).Validate(); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeJSON reads a JSON body of at most 1MB into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.Invalid("body", err.Error())
	}
	return nil
}

// parseAmount accepts a positive amount, with either decimal separator.
func parseAmount(s string) (decimal.Decimal, error) {
	return core.ParseAmount(s)
}

// parseBalance accepts any signed decimal; balances may be negative.
func parseBalance(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, core.Invalid(field, fmt.Sprintf("%q is not a number", s))
	}
	return d.Round(2), nil
}

// optional returns nil for a blank pointer, and the trimmed value otherwise.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
