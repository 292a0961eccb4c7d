package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/securewatch/securewatch-core/internal/scan"
)

// iamRecordRequest is the body for POST /api/iam-records.
type iamRecordRequest struct {
	ScanJobID        string     `json:"scanJobId"`
	Platform         string     `json:"platform"`
	UserEmail        string     `json:"userEmail"`
	Role             string     `json:"role"`
	MFAEnabled       bool       `json:"mfaEnabled"`
	LastLogin        *time.Time `json:"lastLogin"`
	Permissions      []string   `json:"permissions"`
	IsOverPrivileged bool       `json:"isOverPrivileged"`
}

// handleListIAMRecords returns the organization's access review findings.
func (s *Server) handleListIAMRecords(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	records, err := s.iam.List(r.Context(), ident.OrganizationID)
	if err != nil {
		s.logger.Error("listing IAM records", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleCreateIAMRecord records one identity found during an access review.
func (s *Server) handleCreateIAMRecord(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req iamRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.Platform == "" {
		fields["platform"] = "Platform is required"
	}
	if req.UserEmail == "" {
		fields["userEmail"] = "User email is required"
	}

	// Same answer for another tenant's scan id and a nonexistent one.
	if req.ScanJobID != "" {
		if _, err := s.jobs.GetByID(r.Context(), ident.OrganizationID, req.ScanJobID); err != nil {
			if errors.Is(err, scan.ErrNotFound) {
				fields["scanJobId"] = "Scan not found"
			} else {
				s.logger.Error("resolving IAM record scan", "error", err)
				writeServiceUnavailable(w)
				return
			}
		}
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	rec := &scan.IAMRecord{
		ScanJobID:        req.ScanJobID,
		Platform:         req.Platform,
		UserEmail:        req.UserEmail,
		Role:             req.Role,
		MFAEnabled:       req.MFAEnabled,
		LastLogin:        req.LastLogin,
		Permissions:      req.Permissions,
		IsOverPrivileged: req.IsOverPrivileged,
	}

	if err := s.iam.Create(r.Context(), ident.OrganizationID, rec); err != nil {
		s.logger.Error("creating IAM record", "error", err)
		writeServiceUnavailable(w)
		return
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "create", "iam_record", rec.ID, map[string]any{"platform": rec.Platform})
	writeJSON(w, http.StatusCreated, rec)
}
