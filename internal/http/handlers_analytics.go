package http

import (
	"bytes"
	"fmt"
	"net/http"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/export"
)

// filteredTransactions loads the owner's transactions narrowed by the query.
func (s *Server) filteredTransactions(r *http.Request) ([]core.Transaction, error) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		return nil, err
	}
	txns, err := s.deps.Ledger.ListTransactions(r.Context(), session(r), r.URL.Query().Get("accountId"))
	if err != nil {
		return nil, err
	}
	return filter.Apply(txns), nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	txns, err := s.filteredTransactions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(txns))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	txns, err := s.filteredTransactions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": analytics.Breakdown(txns)})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	rng, err := analytics.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	txns, err := s.filteredTransactions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"range":   rng,
		"buckets": analytics.Series(txns, rng, s.now()),
	})
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Exporter.WriteJSON(r.Context(), session(r), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeDownload(w, "application/json", export.FileName("backup", "json", s.now()), buf.Bytes())
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Exporter.WriteCSV(r.Context(), session(r), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeDownload(w, "text/csv; charset=utf-8", export.FileName("transactions", "csv", s.now()), buf.Bytes())
}

// writeDownload sends an export that has been fully rendered.
func (s *Server) writeDownload(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
