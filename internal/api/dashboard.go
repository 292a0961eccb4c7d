package api

import "net/http"

// handleDashboardMetrics returns the aggregated counters for the caller's
// organization.
func (s *Server) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	metrics, err := s.dashboard.Metrics(r.Context(), ident.OrganizationID)
	if err != nil {
		s.logger.Error("computing dashboard metrics", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}
