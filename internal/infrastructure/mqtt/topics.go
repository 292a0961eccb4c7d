package mqtt

import "fmt"

// Topic prefixes for the SecureWatch scanner bus.
//
// Scanner workers are external processes that subscribe to start/generate
// requests and publish status updates back. All topics carry the job or
// report ID as a path segment so workers can subscribe selectively.
const (
	// TopicPrefixScans is the base for scan job topics.
	TopicPrefixScans = "securewatch/scans"

	// TopicPrefixReports is the base for report generation topics.
	TopicPrefixReports = "securewatch/reports"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "securewatch/system"
)

// Topics provides builders for SecureWatch MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	startTopic := topics.ScanStart("scn-abc123")
//	// Returns: "securewatch/scans/scn-abc123/start"
type Topics struct{}

// ScanStart returns the topic for dispatching a scan job to workers.
//
// Example: securewatch/scans/scn-abc123/start
func (Topics) ScanStart(jobID string) string {
	return fmt.Sprintf("%s/%s/start", TopicPrefixScans, jobID)
}

// ScanStatus returns the topic a worker publishes job status updates on.
//
// Example: securewatch/scans/scn-abc123/status
func (Topics) ScanStatus(jobID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixScans, jobID)
}

// ReportGenerate returns the topic for dispatching a report generation job.
//
// Example: securewatch/reports/rpt-abc123/generate
func (Topics) ReportGenerate(reportID string) string {
	return fmt.Sprintf("%s/%s/generate", TopicPrefixReports, reportID)
}

// ReportStatus returns the topic a worker publishes report status updates on.
//
// Example: securewatch/reports/rpt-abc123/status
func (Topics) ReportStatus(reportID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixReports, reportID)
}

// SystemStatus returns the core online/offline status topic.
// The LWT is registered on this topic so workers can detect a crashed core.
//
// Example: securewatch/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: securewatch/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// AllScanStatuses returns a pattern matching status updates from every
// scan worker.
//
// Pattern: securewatch/scans/+/status
func (Topics) AllScanStatuses() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixScans)
}

// AllReportStatuses returns a pattern matching status updates from every
// report worker.
//
// Pattern: securewatch/reports/+/status
func (Topics) AllReportStatuses() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixReports)
}

// AllTopics returns a pattern matching all SecureWatch topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: securewatch/#
func (Topics) AllTopics() string {
	return "securewatch/#"
}
