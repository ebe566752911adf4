package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

// uploadedCSV returns the CSV document of a request: the "file" part of a
// multipart form, or the raw body otherwise. The importer enforces the size limit.
func uploadedCSV(r *http.Request) (io.ReadCloser, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, core.Invalid("file", err.Error())
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, core.Invalid("file", "required")
		}
		if err != nil {
			return nil, core.Invalid("file", err.Error())
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := uploadedCSV(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	out, err := s.deps.Importer.Import(r.Context(), session(r), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	body, err := uploadedCSV(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	p, err := s.deps.Importer.Preview(r.Context(), session(r), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Importer.Commit(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
