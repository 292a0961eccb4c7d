package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/securewatch/securewatch-core/internal/asset"
	"github.com/securewatch/securewatch-core/internal/scan"
)

// scanRequest is the body for POST /api/scans.
type scanRequest struct {
	AssetID string `json:"assetId"`
	Type    string `json:"type"`
	Name    string `json:"name"`
}

// handleListScans returns all scan jobs in the caller's organization.
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	jobs, err := s.jobs.List(r.Context(), ident.OrganizationID)
	if err != nil {
		s.logger.Error("listing scan jobs", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

// handleCreateScan creates a scan job in the pending state and dispatches
// it to the worker fleet. Dispatch is best-effort: with no broker the row
// still exists and a worker can pick it up later.
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req scanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.Type == "" {
		fields["type"] = "Type is required"
	}
	if req.Name == "" {
		fields["name"] = "Name is required"
	}

	// A referenced asset must resolve inside the caller's organization.
	// Another tenant's id and a nonexistent id get the same answer, so
	// the reference check cannot be used to probe for foreign ids.
	if req.AssetID != "" {
		if _, err := s.assets.GetByID(r.Context(), ident.OrganizationID, req.AssetID); err != nil {
			if errors.Is(err, asset.ErrNotFound) {
				fields["assetId"] = "Asset not found"
			} else {
				s.logger.Error("resolving scan asset", "error", err)
				writeServiceUnavailable(w)
				return
			}
		}
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	job := &scan.Job{
		AssetID:   req.AssetID,
		Type:      req.Type,
		Name:      req.Name,
		CreatedBy: ident.User.ID,
	}

	if err := s.jobs.Create(r.Context(), ident.OrganizationID, job); err != nil {
		s.logger.Error("creating scan job", "error", err)
		writeServiceUnavailable(w)
		return
	}

	if s.scanner != nil {
		s.scanner.DispatchScan(job)
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "create", "scan", job.ID, map[string]any{"type": job.Type})
	writeJSON(w, http.StatusCreated, job)
}

// handleGetScan returns one scan job with its progress and results.
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	job, err := s.jobs.GetByID(r.Context(), ident.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, scan.ErrNotFound) {
			writeNotFound(w, "Scan")
			return
		}
		s.logger.Error("getting scan job", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, job)
}
