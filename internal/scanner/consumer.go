package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/securewatch/securewatch-core/internal/report"
	"github.com/securewatch/securewatch-core/internal/scan"
)

// Event types broadcast to dashboard clients.
const (
	EventScanUpdate   = "scan_update"
	EventReportUpdate = "report_update"
)

// scanStatusMessage is the payload workers publish on scans/+/status.
type scanStatusMessage struct {
	JobID          string         `json:"jobId"`
	OrganizationID string         `json:"organizationId"`
	Status         string         `json:"status"`
	Progress       int            `json:"progress"`
	Results        map[string]any `json:"results,omitempty"`
}

// reportStatusMessage is the payload workers publish on reports/+/status.
type reportStatusMessage struct {
	ReportID       string `json:"reportId"`
	OrganizationID string `json:"organizationId"`
	Status         string `json:"status"`
	FileURL        string `json:"fileUrl,omitempty"`
}

// Start subscribes to the worker status topics. With no bus configured
// this is a no-op: nothing will ever report status.
func (s *Service) Start() error {
	if s.bus == nil {
		s.logger.Debug("scanner consumer disabled: no message bus")
		return nil
	}

	if err := s.bus.Subscribe(s.topics.AllScanStatuses(), s.qos, s.handleScanStatus); err != nil {
		return fmt.Errorf("subscribing to scan statuses: %w", err)
	}
	if err := s.bus.Subscribe(s.topics.AllReportStatuses(), s.qos, s.handleReportStatus); err != nil {
		return fmt.Errorf("subscribing to report statuses: %w", err)
	}

	s.logger.Info("scanner consumer started",
		"scan_topic", s.topics.AllScanStatuses(),
		"report_topic", s.topics.AllReportStatuses(),
	)
	return nil
}

// handleScanStatus applies a worker-reported job transition.
//
// Unknown jobs, cross-tenant ids and invalid transitions are ignored with
// a warning: workers are outside the trust boundary and a stale or
// malicious message must not corrupt job state.
func (s *Service) handleScanStatus(topic string, payload []byte) error {
	var msg scanStatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("parsing scan status payload: %w", err)
	}
	if msg.JobID == "" {
		msg.JobID = idFromTopic(topic)
	}
	if msg.JobID == "" || msg.OrganizationID == "" {
		s.logger.Warn("scan status missing job or organization id", "topic", topic)
		return nil
	}

	ctx := context.Background()
	job, err := s.jobs.ApplyStatus(ctx, msg.OrganizationID, msg.JobID, scan.StatusUpdate{
		Status:   msg.Status,
		Progress: msg.Progress,
		Results:  msg.Results,
	})
	switch {
	case errors.Is(err, scan.ErrInvalidTransition):
		s.logger.Warn("ignoring invalid scan status transition",
			"job_id", msg.JobID, "status", msg.Status)
		return nil
	case errors.Is(err, scan.ErrNotFound):
		s.logger.Warn("scan status for unknown job",
			"job_id", msg.JobID, "organization_id", msg.OrganizationID)
		return nil
	case err != nil:
		return fmt.Errorf("applying scan status: %w", err)
	}

	if s.metrics != nil {
		s.metrics.WriteScanProgress(job.OrganizationID, job.ID, job.Status, job.Progress)
	}
	if s.events != nil {
		s.events.Broadcast(job.OrganizationID, EventScanUpdate, job)
	}
	return nil
}

// handleReportStatus applies a generator-reported report outcome.
func (s *Service) handleReportStatus(topic string, payload []byte) error {
	var msg reportStatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("parsing report status payload: %w", err)
	}
	if msg.ReportID == "" {
		msg.ReportID = idFromTopic(topic)
	}
	if msg.ReportID == "" || msg.OrganizationID == "" {
		s.logger.Warn("report status missing report or organization id", "topic", topic)
		return nil
	}
	if !isValidReportStatus(msg.Status) {
		s.logger.Warn("ignoring unrecognised report status",
			"report_id", msg.ReportID, "status", msg.Status)
		return nil
	}

	rep, err := s.reports.SetStatus(context.Background(), msg.OrganizationID, msg.ReportID, msg.Status, msg.FileURL)
	switch {
	case errors.Is(err, report.ErrNotFound):
		s.logger.Warn("report status for unknown report",
			"report_id", msg.ReportID, "organization_id", msg.OrganizationID)
		return nil
	case err != nil:
		return fmt.Errorf("applying report status: %w", err)
	}

	if s.events != nil {
		s.events.Broadcast(rep.OrganizationID, EventReportUpdate, rep)
	}
	return nil
}

// isValidReportStatus reports whether a worker-supplied status is one the
// report lifecycle recognises.
func isValidReportStatus(status string) bool {
	switch status {
	case report.StatusGenerating, report.StatusCompleted, report.StatusFailed:
		return true
	}
	return false
}

// idFromTopic extracts the entity id from a status topic such as
// securewatch/scans/scn-abc123/status.
func idFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
