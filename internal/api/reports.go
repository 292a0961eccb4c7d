package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/securewatch/securewatch-core/internal/report"
)

// reportRequest is the body for POST /api/reports.
type reportRequest struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

// handleListReports returns the organization's reports, newest first.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	reports, err := s.reports.List(r.Context(), ident.OrganizationID)
	if err != nil {
		s.logger.Error("listing reports", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

// handleCreateReport creates a report row in the generating state and
// dispatches the generation request. Without a broker the row simply
// stays generating.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req reportRequest
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
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	rep := &report.Report{
		Name:        req.Name,
		Type:        req.Type,
		Parameters:  req.Parameters,
		GeneratedBy: ident.User.ID,
	}

	if err := s.reports.Create(r.Context(), ident.OrganizationID, rep); err != nil {
		s.logger.Error("creating report", "error", err)
		writeServiceUnavailable(w)
		return
	}

	if s.scanner != nil {
		s.scanner.DispatchReport(rep)
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "create", "report", rep.ID, map[string]any{"type": rep.Type})
	writeJSON(w, http.StatusCreated, rep)
}

// handleGetReport returns one report, including its file URL once
// generation has completed.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	rep, err := s.reports.GetByID(r.Context(), ident.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			writeNotFound(w, "Report")
			return
		}
		s.logger.Error("getting report", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}
