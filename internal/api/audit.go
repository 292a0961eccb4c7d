package api

import (
	"net/http"
	"strconv"

	"github.com/securewatch/securewatch-core/internal/audit"
)

// handleListAuditLogs returns the organization's audit trail, newest
// first, with optional filters and pagination.
//
// Query parameters: action, entityType, entityId, limit, offset.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.audit.List(r.Context(), ident.OrganizationID, filter)
	if err != nil {
		s.logger.Error("listing audit logs", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
