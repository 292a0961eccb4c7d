package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/securewatch/securewatch-core/internal/asset"
)

// assetRequest is the body for asset create and update. The organization
// is never part of it; ownership always comes from the session.
type assetRequest struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	IP       string         `json:"ip"`
	Domain   string         `json:"domain"`
	Port     *int           `json:"port"`
	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata"`
	Status   string         `json:"status"`
}

// handleListAssets returns all assets in the caller's organization.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	assets, err := s.assets.List(r.Context(), ident.OrganizationID)
	if err != nil {
		s.logger.Error("listing assets", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, assets)
}

// handleCreateAsset registers a new asset in the caller's organization.
func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req assetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	if req.Type == "" {
		fields["type"] = "Type is required"
	}
	if req.Status != "" && !asset.IsValidStatus(req.Status) {
		fields["status"] = "Status must be one of active, inactive, archived"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	a := &asset.Asset{
		Name:     req.Name,
		Type:     req.Type,
		IP:       req.IP,
		Domain:   req.Domain,
		Port:     req.Port,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		Status:   req.Status,
	}
	if a.Status == "" {
		a.Status = asset.StatusActive
	}

	if err := s.assets.Create(r.Context(), ident.OrganizationID, a); err != nil {
		s.logger.Error("creating asset", "error", err)
		writeServiceUnavailable(w)
		return
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "create", "asset", a.ID, map[string]any{"name": a.Name})
	writeJSON(w, http.StatusCreated, a)
}

// handleGetAsset returns one asset. An id from another organization is a
// plain 404.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	a, err := s.assets.GetByID(r.Context(), ident.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			writeNotFound(w, "Asset")
			return
		}
		s.logger.Error("getting asset", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleUpdateAsset replaces an asset's mutable fields.
func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req assetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	if req.Type == "" {
		fields["type"] = "Type is required"
	}
	if req.Status != "" && !asset.IsValidStatus(req.Status) {
		fields["status"] = "Status must be one of active, inactive, archived"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	a := &asset.Asset{
		ID:       chi.URLParam(r, "id"),
		Name:     req.Name,
		Type:     req.Type,
		IP:       req.IP,
		Domain:   req.Domain,
		Port:     req.Port,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		Status:   req.Status,
	}
	if a.Status == "" {
		a.Status = asset.StatusActive
	}

	if err := s.assets.Update(r.Context(), ident.OrganizationID, a); err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			writeNotFound(w, "Asset")
			return
		}
		s.logger.Error("updating asset", "error", err)
		writeServiceUnavailable(w)
		return
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "update", "asset", a.ID, nil)
	writeJSON(w, http.StatusOK, a)
}

// handleDeleteAsset removes an asset. Admin only; the scoped lookup runs
// first so a cross-tenant id 404s before any role check could leak it.
func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.assets.GetByID(r.Context(), ident.OrganizationID, id); err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			writeNotFound(w, "Asset")
			return
		}
		s.logger.Error("getting asset for delete", "error", err)
		writeServiceUnavailable(w)
		return
	}

	if !ident.User.Role.IsAdmin() {
		writeForbidden(w)
		return
	}

	if err := s.assets.Delete(r.Context(), ident.OrganizationID, id); err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			writeNotFound(w, "Asset")
			return
		}
		s.logger.Error("deleting asset", "error", err)
		writeServiceUnavailable(w)
		return
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "delete", "asset", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
