package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// TransactionsResponse is the body of GET /api/transactions.
type TransactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
	Income       core.Money         `json:"totalIncome"`
	Expenses     core.Money         `json:"totalExpenses"`
}

// handleListTransactions returns the transactions matching the query
// filters. With ?useSession=true the stored session filters are used instead.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.filtersFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs := s.store.GetFilteredTransactions(opts)
	resp := TransactionsResponse{Transactions: txs, Count: len(txs)}
	for _, t := range txs {
		if t.Type == core.Income {
			resp.Income = resp.Income.Add(t.Amount)
		} else {
			resp.Expenses = resp.Expenses.Add(t.Amount)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) filtersFor(r *http.Request) (core.FilterOptions, error) {
	if r.URL.Query().Get("useSession") == "true" {
		return s.store.Session().Filters, nil
	}
	return parseFilters(r.URL.Query())
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, ok := s.store.Transaction(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(w, r, &t); err != nil {
		writeError(w, r, err)
		return
	}
	if err := t.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	created := s.store.AddTransaction(t)
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionPosted(r.Context(), created.ID, created.Account, created.Amount.Cents, string(created.Type))
	s.persist(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateTransaction applies a partial update. The merged result must
// still be a valid transaction.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch store.TransactionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	cur, ok := s.store.Transaction(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "Transaction not found")
		return
	}
	if err := patch.Apply(cur).Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.UpdateTransaction(id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.persist(r.Context())
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTransaction(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.persist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
