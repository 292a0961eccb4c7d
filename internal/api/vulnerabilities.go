package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/securewatch/securewatch-core/internal/scan"
)

// vulnerabilityUpdateRequest is the body for PUT /api/vulnerabilities/{id}.
// Typically used to triage a finding: change its status or correct its
// severity.
type vulnerabilityUpdateRequest struct {
	Name           string   `json:"name"`
	Severity       string   `json:"severity"`
	CVSSScore      *float64 `json:"cvssScore"`
	Description    string   `json:"description"`
	Endpoint       string   `json:"endpoint"`
	Recommendation string   `json:"recommendation"`
	Status         string   `json:"status"`
}

// handleListVulnerabilities returns all findings in the caller's
// organization, most severe first.
func (s *Server) handleListVulnerabilities(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	vulns, err := s.vulns.List(r.Context(), ident.OrganizationID)
	if err != nil {
		s.logger.Error("listing vulnerabilities", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, vulns)
}

// handleGetVulnerability returns one finding.
func (s *Server) handleGetVulnerability(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	v, err := s.vulns.GetByID(r.Context(), ident.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, scan.ErrNotFound) {
			writeNotFound(w, "Vulnerability")
			return
		}
		s.logger.Error("getting vulnerability", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// handleUpdateVulnerability updates a finding's triage fields.
func (s *Server) handleUpdateVulnerability(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	existing, err := s.vulns.GetByID(r.Context(), ident.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, scan.ErrNotFound) {
			writeNotFound(w, "Vulnerability")
			return
		}
		s.logger.Error("getting vulnerability for update", "error", err)
		writeServiceUnavailable(w)
		return
	}

	var req vulnerabilityUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.Severity != "" && !scan.IsValidSeverity(req.Severity) {
		fields["severity"] = "Severity must be one of critical, high, medium, low, info"
	}
	if req.Status != "" && !scan.IsValidVulnStatus(req.Status) {
		fields["status"] = "Status must be one of open, in_progress, resolved, false_positive"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	prevSeverity := existing.Severity

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Severity != "" {
		existing.Severity = req.Severity
	}
	if req.CVSSScore != nil {
		existing.CVSSScore = req.CVSSScore
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Endpoint != "" {
		existing.Endpoint = req.Endpoint
	}
	if req.Recommendation != "" {
		existing.Recommendation = req.Recommendation
	}
	if req.Status != "" {
		existing.Status = req.Status
	}

	if err := s.vulns.Update(r.Context(), ident.OrganizationID, existing); err != nil {
		if errors.Is(err, scan.ErrNotFound) {
			writeNotFound(w, "Vulnerability")
			return
		}
		s.logger.Error("updating vulnerability", "error", err)
		writeServiceUnavailable(w)
		return
	}

	// Triage changes move findings between open-count buckets; refresh
	// the affected severities in the metrics history.
	if s.influx != nil {
		s.writeSeverityCount(r.Context(), ident.OrganizationID, existing.Severity)
		if prevSeverity != existing.Severity {
			s.writeSeverityCount(r.Context(), ident.OrganizationID, prevSeverity)
		}
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "update", "vulnerability", existing.ID, map[string]any{"status": existing.Status})
	writeJSON(w, http.StatusOK, existing)
}

// writeSeverityCount records the current open-finding count for one
// severity bucket. Best-effort: a failed count is logged, never surfaced.
func (s *Server) writeSeverityCount(ctx context.Context, organizationID, severity string) {
	count, err := s.vulns.CountOpenBySeverity(ctx, organizationID, severity)
	if err != nil {
		s.logger.Warn("counting open vulnerabilities for metrics", "severity", severity, "error", err)
		return
	}
	s.influx.WriteVulnerabilityCount(organizationID, severity, count)
}
