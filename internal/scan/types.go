// Package scan holds the security-scan domain: scan jobs dispatched to
// external engines, the vulnerabilities they discover, and IAM access
// review records. All three are tenant-scoped.
package scan

import (
	"errors"
	"time"
)

// Scan job statuses. Jobs are created pending, move to running when an
// engine picks them up, and finish completed or failed.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// validJobTransitions maps a current status to the statuses an engine may
// move it to. Completed and failed are terminal.
var validJobTransitions = map[string]map[string]bool{
	JobPending: {JobRunning: true, JobCompleted: true, JobFailed: true},
	JobRunning: {JobRunning: true, JobCompleted: true, JobFailed: true},
}

// IsValidJobTransition reports whether a job may move from one status to
// another. Same-status "transitions" while running are allowed so engines
// can stream progress updates.
func IsValidJobTransition(from, to string) bool {
	return validJobTransitions[from][to]
}

// Vulnerability severities, ordered worst first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// validSeverities is the set of accepted severities.
var validSeverities = map[string]bool{
	SeverityCritical: true,
	SeverityHigh:     true,
	SeverityMedium:   true,
	SeverityLow:      true,
	SeverityInfo:     true,
}

// IsValidSeverity returns true if the severity is recognised.
func IsValidSeverity(s string) bool {
	return validSeverities[s]
}

// Vulnerability statuses.
const (
	VulnOpen          = "open"
	VulnInProgress    = "in_progress"
	VulnResolved      = "resolved"
	VulnFalsePositive = "false_positive"
)

// validVulnStatuses is the set of accepted vulnerability statuses.
var validVulnStatuses = map[string]bool{
	VulnOpen:          true,
	VulnInProgress:    true,
	VulnResolved:      true,
	VulnFalsePositive: true,
}

// IsValidVulnStatus returns true if the status is recognised.
func IsValidVulnStatus(s string) bool {
	return validVulnStatuses[s]
}

// Job represents one scan execution against an organization's estate.
type Job struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	AssetID        string         `json:"assetId,omitempty"`
	Type           string         `json:"type"`
	Name           string         `json:"name"`
	Status         string         `json:"status"`
	Progress       int            `json:"progress"`
	Results        map[string]any `json:"results,omitempty"`
	StartedAt      *time.Time     `json:"startedAt,omitempty"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	CreatedBy      string         `json:"createdBy"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Vulnerability represents a single finding, usually produced by a scan.
type Vulnerability struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	AssetID        string    `json:"assetId,omitempty"`
	ScanJobID      string    `json:"scanJobId,omitempty"`
	Name           string    `json:"name"`
	Severity       string    `json:"severity"`
	CVSSScore      *float64  `json:"cvssScore,omitempty"`
	Description    string    `json:"description"`
	Endpoint       string    `json:"endpoint,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IAMRecord represents one identity found during an access review:
// a user on some platform, their role, and risk signals.
type IAMRecord struct {
	ID               string     `json:"id"`
	OrganizationID   string     `json:"organizationId"`
	ScanJobID        string     `json:"scanJobId,omitempty"`
	Platform         string     `json:"platform"`
	UserEmail        string     `json:"userEmail"`
	Role             string     `json:"role,omitempty"`
	MFAEnabled       bool       `json:"mfaEnabled"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	Permissions      []string   `json:"permissions"`
	IsOverPrivileged bool       `json:"isOverPrivileged"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Sentinel errors for scan operations. ErrNotFound covers cross-tenant ids
// as well as genuinely missing rows.
var (
	ErrNotFound          = errors.New("scan record not found")
	ErrInvalidTransition = errors.New("invalid scan status transition")
)
