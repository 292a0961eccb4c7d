// Package asset manages an organization's registered digital assets:
// the servers, applications and endpoints that scans run against.
package asset

import (
	"errors"
	"time"
)

// Status values for an asset.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

// validStatuses is the set of accepted asset statuses.
var validStatuses = map[string]bool{
	StatusActive:   true,
	StatusInactive: true,
	StatusArchived: true,
}

// IsValidStatus returns true if the status is recognised.
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// Asset represents a registered digital asset belonging to one organization.
type Asset struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	IP             string         `json:"ip,omitempty"`
	Domain         string         `json:"domain,omitempty"`
	Port           *int           `json:"port,omitempty"`
	Tags           []string       `json:"tags"`
	Metadata       map[string]any `json:"metadata"`
	Status         string         `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Sentinel errors for asset operations.
var (
	// ErrNotFound covers both genuinely missing assets and assets that
	// belong to a different organization. The two are indistinguishable
	// from the caller's point of view.
	ErrNotFound = errors.New("asset not found")
)
