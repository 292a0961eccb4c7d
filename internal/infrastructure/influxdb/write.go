package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteScanProgress records a scan job status update as a time-series point.
//
// Called whenever a worker reports progress, this builds the history behind
// scan duration and throughput charts. The write is non-blocking; data is
// batched and sent asynchronously.
//
// Parameters:
//   - organizationID: Tenant the job belongs to
//   - jobID: Scan job identifier (e.g., "scn-abc123")
//   - status: Current job status (pending, running, completed, failed)
//   - progress: Completion percentage 0-100
//
// Example:
//
//	client.WriteScanProgress("org-acme", "scn-abc123", "running", 40)
func (c *Client) WriteScanProgress(organizationID, jobID, status string, progress int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"scan_progress",
		map[string]string{
			"organization_id": organizationID,
			"job_id":          jobID,
			"status":          status,
		},
		map[string]interface{}{
			"progress": progress,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteComplianceScore records a compliance assessment result.
//
// Used for tracking posture trends per framework over time.
//
// Parameters:
//   - organizationID: Tenant the assessment belongs to
//   - framework: Compliance framework name (e.g., "SOC2", "ISO27001")
//   - percentage: Score as a percentage of the maximum
func (c *Client) WriteComplianceScore(organizationID, framework string, percentage int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"compliance_scores",
		map[string]string{
			"organization_id": organizationID,
			"framework":       framework,
		},
		map[string]interface{}{
			"percentage": percentage,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteVulnerabilityCount records a point-in-time count of open findings.
//
// Parameters:
//   - organizationID: Tenant the findings belong to
//   - severity: Severity bucket (critical, high, medium, low, info)
//   - count: Number of open findings at that severity
func (c *Client) WriteVulnerabilityCount(organizationID, severity string, count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"vulnerability_counts",
		map[string]string{
			"organization_id": organizationID,
			"severity":        severity,
		},
		map[string]interface{}{
			"count": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
