package http

import (
	"net/http"
	"strings"

	"finance/internal/core"
	"finance/internal/storage"
	"finance/internal/summary"
)

// handleListTransactions lists the user's transactions between from and to
// (default: the last 30 days), optionally for one account.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryRange(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rng, err := summary.ResolveRange(from, to, s.now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter := storage.TransactionFilter{
		AccountID: strings.TrimSpace(r.URL.Query().Get("accountId")),
		From:      rng.From,
		To:        rng.To,
	}
	views, err := s.deps.Transactions.List(r.Context(), userID(r), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if views == nil {
		views = []core.TransactionView{}
	}
	respond(w, r, http.StatusOK, views)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Get(r.Context(), userID(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, t)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var nt core.NewTransaction
	if err := decodeJSON(r, &nt); err != nil {
		respondError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Create(r.Context(), userID(r), nt)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.metrics.transactionsCreated.Add(1)
	respond(w, r, http.StatusOK, t)
}

// handleBulkCreateTransactions stores a JSON array of transactions in one
// batch: all of them or none.
func (s *Server) handleBulkCreateTransactions(w http.ResponseWriter, r *http.Request) {
	var nts []core.NewTransaction
	if err := decodeJSON(r, &nts); err != nil {
		respondError(w, r, err)
		return
	}
	created, err := s.deps.Transactions.BulkCreate(r.Context(), userID(r), nts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if created == nil {
		created = []core.Transaction{}
	}
	s.metrics.transactionsCreated.Add(int64(len(created)))
	respond(w, r, http.StatusOK, created)
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	deleted, err := s.deps.Transactions.BulkDelete(r.Context(), userID(r), req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, idList(deleted))
}

// handleUpdateTransaction replaces every field of the transaction.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var nt core.NewTransaction
	if err := decodeJSON(r, &nt); err != nil {
		respondError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Update(r.Context(), userID(r), id, nt)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.deps.Transactions.Delete(r.Context(), userID(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, idResponse{ID: id})
}
