package scanner

import (
	"encoding/json"

	"github.com/securewatch/securewatch-core/internal/report"
	"github.com/securewatch/securewatch-core/internal/scan"
)

// scanStartMessage is the payload published to workers when a scan job is
// created. Workers echo the job and organization ids back on the status
// topic so updates can be applied tenant-scoped.
type scanStartMessage struct {
	JobID          string `json:"jobId"`
	OrganizationID string `json:"organizationId"`
	AssetID        string `json:"assetId,omitempty"`
	Type           string `json:"type"`
	Name           string `json:"name"`
}

// reportGenerateMessage is the payload published when a report is requested.
type reportGenerateMessage struct {
	ReportID       string         `json:"reportId"`
	OrganizationID string         `json:"organizationId"`
	Type           string         `json:"type"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// DispatchScan publishes a start request for a newly created job.
//
// Dispatch failures are logged, not returned: the job row already exists
// in the pending state and an operator can re-trigger once the broker is
// back. With no bus configured this is a debug-logged no-op.
func (s *Service) DispatchScan(job *scan.Job) {
	if s.bus == nil {
		s.logger.Debug("scan dispatch skipped: message bus disabled", "job_id", job.ID)
		return
	}

	payload, err := json.Marshal(scanStartMessage{
		JobID:          job.ID,
		OrganizationID: job.OrganizationID,
		AssetID:        job.AssetID,
		Type:           job.Type,
		Name:           job.Name,
	})
	if err != nil {
		s.logger.Error("marshalling scan start message", "job_id", job.ID, "error", err)
		return
	}

	topic := s.topics.ScanStart(job.ID)
	if err := s.bus.Publish(topic, payload, s.qos, false); err != nil {
		s.logger.Warn("publishing scan start message", "job_id", job.ID, "topic", topic, "error", err)
		return
	}

	s.logger.Debug("scan job dispatched", "job_id", job.ID, "topic", topic)
}

// DispatchReport publishes a generate request for a newly created report.
// Same failure semantics as DispatchScan: the row stays generating.
func (s *Service) DispatchReport(rep *report.Report) {
	if s.bus == nil {
		s.logger.Debug("report dispatch skipped: message bus disabled", "report_id", rep.ID)
		return
	}

	payload, err := json.Marshal(reportGenerateMessage{
		ReportID:       rep.ID,
		OrganizationID: rep.OrganizationID,
		Type:           rep.Type,
		Parameters:     rep.Parameters,
	})
	if err != nil {
		s.logger.Error("marshalling report generate message", "report_id", rep.ID, "error", err)
		return
	}

	topic := s.topics.ReportGenerate(rep.ID)
	if err := s.bus.Publish(topic, payload, s.qos, false); err != nil {
		s.logger.Warn("publishing report generate message", "report_id", rep.ID, "topic", topic, "error", err)
		return
	}

	s.logger.Debug("report generation dispatched", "report_id", rep.ID, "topic", topic)
}
