// Package dashboard aggregates per-organization metrics for the overview
// screen. All queries are scoped to one organization; the numbers never
// mix tenants.
package dashboard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/securewatch/securewatch-core/internal/compliance"
	"github.com/securewatch/securewatch-core/internal/scan"
)

// Metrics is the aggregate snapshot returned by GET /api/dashboard/metrics.
type Metrics struct {
	TotalAssets             int `json:"totalAssets"`
	CriticalVulnerabilities int `json:"criticalVulnerabilities"`
	ActiveScans             int `json:"activeScans"`
	AverageComplianceScore  int `json:"averageComplianceScore"`
}

// Service computes dashboard metrics.
type Service struct {
	db         *sql.DB
	compliance compliance.Repository
}

// NewService creates a dashboard metrics service.
func NewService(db *sql.DB, complianceRepo compliance.Repository) *Service {
	return &Service{db: db, compliance: complianceRepo}
}

// Metrics returns the organization's aggregate snapshot:
//   - TotalAssets: all registered assets, any status
//   - CriticalVulnerabilities: open findings with critical severity
//   - ActiveScans: jobs currently running
//   - AverageComplianceScore: mean percentage over the latest assessment
//     per framework, rounded to the nearest integer; 0 with no assessments
func (s *Service) Metrics(ctx context.Context, organizationID string) (*Metrics, error) {
	var m Metrics

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assets WHERE organization_id = ?",
		organizationID).Scan(&m.TotalAssets); err != nil {
		return nil, fmt.Errorf("counting assets: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vulnerabilities WHERE organization_id = ? AND severity = ? AND status = ?",
		organizationID, scan.SeverityCritical, scan.VulnOpen).Scan(&m.CriticalVulnerabilities); err != nil {
		return nil, fmt.Errorf("counting critical vulnerabilities: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scan_jobs WHERE organization_id = ? AND status = ?",
		organizationID, scan.JobRunning).Scan(&m.ActiveScans); err != nil {
		return nil, fmt.Errorf("counting active scans: %w", err)
	}

	latest, err := s.compliance.LatestPerFramework(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("loading compliance scores: %w", err)
	}
	m.AverageComplianceScore = compliance.AveragePercentage(latest)

	return &m, nil
}
