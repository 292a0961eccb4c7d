package api

import (
	"errors"
	"net/http"

	"github.com/securewatch/securewatch-core/internal/tenant"
)

// organizationRequest is the body for PUT /api/organization. Settings
// replaces the stored blob wholesale when present; the server does not
// merge keys.
type organizationRequest struct {
	Name     string         `json:"name"`
	Timezone string         `json:"timezone"`
	Settings map[string]any `json:"settings"`
}

// handleGetOrganization returns the caller's own organization. There is no
// id in the path: a caller can only ever see the tenant they belong to.
func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	org, err := s.orgs.GetByID(r.Context(), ident.OrganizationID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeNotFound(w, "Organization")
			return
		}
		s.logger.Error("getting organization", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, org)
}

// handleUpdateOrganization updates tenant settings. Admin only.
func (s *Server) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	org, err := s.orgs.GetByID(r.Context(), ident.OrganizationID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeNotFound(w, "Organization")
			return
		}
		s.logger.Error("getting organization for update", "error", err)
		writeServiceUnavailable(w)
		return
	}

	var req organizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Name != "" {
		org.Name = req.Name
	}
	if req.Timezone != "" {
		org.Timezone = req.Timezone
	}
	if req.Settings != nil {
		org.Settings = req.Settings
	}

	if err := s.orgs.Update(r.Context(), org); err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeNotFound(w, "Organization")
			return
		}
		s.logger.Error("updating organization", "error", err)
		writeServiceUnavailable(w)
		return
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "update", "organization", org.ID, nil)
	writeJSON(w, http.StatusOK, org)
}
