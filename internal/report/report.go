// Package report manages generated audit reports. Report rows are created
// in the generating state; an external generator moves them to completed
// (with a file URL) or failed.
package report

import (
	"errors"
	"time"
)

// Report statuses.
const (
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Report represents one generated (or in-flight) report.
type Report struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	FileURL        string         `json:"fileUrl,omitempty"`
	Status         string         `json:"status"`
	Parameters     map[string]any `json:"parameters"`
	GeneratedBy    string         `json:"generatedBy"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Sentinel errors for report operations. ErrNotFound covers cross-tenant
// ids as well as genuinely missing rows.
var (
	ErrNotFound = errors.New("report not found")
)
