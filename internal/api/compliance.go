package api

import (
	"net/http"
	"time"

	"github.com/securewatch/securewatch-core/internal/compliance"
)

// complianceRequest is the body for POST /api/compliance.
type complianceRequest struct {
	Framework       string     `json:"framework"`
	Score           int        `json:"score"`
	MaxScore        int        `json:"maxScore"`
	Gaps            []string   `json:"gaps"`
	Recommendations []string   `json:"recommendations"`
	AssessmentDate  *time.Time `json:"assessmentDate"`
}

// handleListCompliance returns the organization's assessment history.
func (s *Server) handleListCompliance(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	scores, err := s.compliance.List(r.Context(), ident.OrganizationID)
	if err != nil {
		s.logger.Error("listing compliance scores", "error", err)
		writeServiceUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, scores)
}

// handleCreateCompliance records a framework assessment. Admin only:
// compliance posture is an organization-level statement.
func (s *Server) handleCreateCompliance(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	var req complianceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.Framework == "" {
		fields["framework"] = "Framework is required"
	}
	if req.MaxScore <= 0 {
		fields["maxScore"] = "Max score must be positive"
	}
	if req.Score < 0 || (req.MaxScore > 0 && req.Score > req.MaxScore) {
		fields["score"] = "Score must be between 0 and max score"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	score := &compliance.Score{
		Framework:       req.Framework,
		Score:           req.Score,
		MaxScore:        req.MaxScore,
		Gaps:            req.Gaps,
		Recommendations: req.Recommendations,
	}
	if req.AssessmentDate != nil {
		score.AssessmentDate = *req.AssessmentDate
	}

	if err := s.compliance.Create(r.Context(), ident.OrganizationID, score); err != nil {
		s.logger.Error("creating compliance score", "error", err)
		writeServiceUnavailable(w)
		return
	}

	if s.influx != nil {
		s.influx.WriteComplianceScore(ident.OrganizationID, score.Framework, int(score.Percentage()))
	}

	s.recordAudit(r, ident.OrganizationID, ident.User.ID, "create", "compliance_score", score.ID, map[string]any{"framework": score.Framework})
	writeJSON(w, http.StatusCreated, score)
}
