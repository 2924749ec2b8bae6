package http

import (
	"net/http"
	"strings"

	"finance/internal/summary"
)

// handleSummary returns the dashboard figures for from..to, optionally
// restricted to one account.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryRange(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out, err := s.deps.Summary.Summarize(r.Context(), userID(r), summary.Query{
		AccountID: strings.TrimSpace(r.URL.Query().Get("accountId")),
		From:      from,
		To:        to,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, out)
}
