package http

import (
	"net/http"

	"aurora/internal/auth"
	"aurora/internal/dashboard"
)

// handleDashboard returns the live rollup for the current principal. The
// first call per principal starts the subscriptions; later calls read
// the maintained caches.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.Principal(r.Context(), s.auth)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	s.aggMu.Lock()
	agg, exists := s.aggregators[owner]
	if !exists {
		agg = dashboard.New(r.Context(), s.gw, owner, nil)
		s.aggregators[owner] = agg
	}
	s.aggMu.Unlock()

	writeJSON(w, http.StatusOK, agg.Current())
}
