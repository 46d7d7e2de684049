package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/transfer"
)

// ImportPreview is the reviewable result of an uploaded CSV.
type ImportPreview struct {
	ID       string               `json:"id"`
	Rows     []transfer.ImportRow `json:"rows"`
	Selected int                  `json:"selected"`
}

// CommitRequest optionally overrides the cached preview before posting.
// Rows replaces the preview wholesale; Selected picks rows by index.
type CommitRequest struct {
	Rows     []transfer.ImportRow `json:"rows,omitempty"`
	Selected []int                `json:"selected,omitempty"`
}

// CommitResponse reports what an import commit posted.
type CommitResponse struct {
	Created      int                `json:"created"`
	Transactions []core.Transaction `json:"transactions"`
}

func newPreview(id string, rows []transfer.ImportRow) ImportPreview {
	p := ImportPreview{ID: id, Rows: rows}
	if p.Rows == nil {
		p.Rows = []transfer.ImportRow{}
	}
	for _, r := range rows {
		if r.Selected {
			p.Selected++
		}
	}
	return p
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	opts, err := s.filtersFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := transfer.WriteCSV(&buf, s.store.GetFilteredTransactions(opts), s.store.Categories(), s.store.Accounts()); err != nil {
		writeError(w, r, err)
		return
	}
	s.attachment(w, "text/csv; charset=utf-8", "transactions", "csv")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := transfer.WriteBackup(&buf, s.store.Data(), s.store.Now()); err != nil {
		writeError(w, r, err)
		return
	}
	s.attachment(w, "application/json", "fintrack-backup", "json")
	_, _ = w.Write(buf.Bytes())
}

func handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions-template.csv"`)
	_, _ = w.Write([]byte(transfer.Template))
}

func (s *Server) attachment(w http.ResponseWriter, contentType, name, ext string) {
	filename := fmt.Sprintf("%s-%s.%s", name, core.DateOf(s.store.Now()).String(), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}

// handleImportCSV parses an upload into a preview held server-side until it
// is committed, discarded or expires.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	body, err := uploadReader(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	today := core.DateOf(s.store.Now())
	rows, err := transfer.ParseCSV(body, s.store.Categories(), s.store.Accounts(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := uuid.NewString()
	s.previews.Set(id, rows)
	preview := newPreview(id, rows)
	log.FromContext(r.Context()).InfoContext(r.Context(), "CSV import previewed",
		"rows", len(rows),
		"selected", preview.Selected)
	writeJSON(w, http.StatusCreated, preview)
}

func (s *Server) handleGetImportPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rows, ok := s.previews.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "Import preview not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, newPreview(id, rows))
}

// handleCommitImport posts the selected preview rows. The preview survives a
// failed commit so the caller can correct the selection and retry.
func (s *Server) handleCommitImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rows, ok := s.previews.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "Import preview not found or expired")
		return
	}

	var req CommitRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, err)
		return
	}
	rows, err := applySelection(rows, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := transfer.Commit(s.store, rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.previews.Delete(id)
	s.persist(r.Context())
	log.FromContext(r.Context()).InfoContext(r.Context(), "CSV import committed",
		"created", len(created))
	writeJSON(w, http.StatusCreated, CommitResponse{Created: len(created), Transactions: created})
}

func applySelection(cached []transfer.ImportRow, req CommitRequest) ([]transfer.ImportRow, error) {
	rows := cached
	if req.Rows != nil {
		rows = req.Rows
	}
	rows = append([]transfer.ImportRow(nil), rows...)
	if req.Selected == nil {
		return rows, nil
	}
	for i := range rows {
		rows[i].Selected = false
	}
	for _, i := range req.Selected {
		if i < 0 || i >= len(rows) {
			return nil, fmt.Errorf("%w: row index %d out of range", errBadRequest, i)
		}
		rows[i].Selected = true
	}
	return rows, nil
}

func (s *Server) handleDiscardImport(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.previews.Take(chi.URLParam(r, "id")); !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "Import preview not found or expired")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportJSON restores a backup. ?policy=merge keeps existing records
// that the backup does not mention; the default replaces every collection
// present in the file.
func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	policy, err := transfer.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	body, err := uploadReader(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	res, err := transfer.ImportBackup(s.store, body, policy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.persist(r.Context())
	log.FromContext(r.Context()).InfoContext(r.Context(), "Backup imported",
		"policy", string(res.Policy),
		"transactions", res.Transactions)
	writeJSON(w, http.StatusOK, res)
}
