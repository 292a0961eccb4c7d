package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VulnerabilityRepository defines the interface for vulnerability persistence.
type VulnerabilityRepository interface {
	Create(ctx context.Context, organizationID string, v *Vulnerability) error
	List(ctx context.Context, organizationID string) ([]Vulnerability, error)
	GetByID(ctx context.Context, organizationID, id string) (*Vulnerability, error)
	Update(ctx context.Context, organizationID string, v *Vulnerability) error
	CountOpenBySeverity(ctx context.Context, organizationID, severity string) (int, error)
}

// SQLiteVulnerabilityRepository implements VulnerabilityRepository using SQLite.
type SQLiteVulnerabilityRepository struct {
	db *sql.DB
}

// NewVulnerabilityRepository creates a new SQLite-backed vulnerability repository.
func NewVulnerabilityRepository(db *sql.DB) *SQLiteVulnerabilityRepository {
	return &SQLiteVulnerabilityRepository{db: db}
}

const vulnColumns = "id, organization_id, asset_id, scan_job_id, name, severity, cvss_score, description, endpoint, recommendation, status, created_at, updated_at"

// Create inserts a new vulnerability stamped with the organization.
func (r *SQLiteVulnerabilityRepository) Create(ctx context.Context, organizationID string, v *Vulnerability) error {
	if v.ID == "" {
		v.ID = "vul-" + uuid.NewString()[:8]
	}
	v.OrganizationID = organizationID
	if v.Status == "" {
		v.Status = VulnOpen
	}

	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	nowStr := now.Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vulnerabilities (id, organization_id, asset_id, scan_job_id, name, severity, cvss_score, description, endpoint, recommendation, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.OrganizationID, nullString(v.AssetID), nullString(v.ScanJobID),
		v.Name, v.Severity, nullFloat(v.CVSSScore), v.Description, v.Endpoint,
		v.Recommendation, v.Status, nowStr, nowStr,
	)
	if err != nil {
		return fmt.Errorf("creating vulnerability: %w", err)
	}
	return nil
}

// List returns the organization's vulnerabilities, newest first.
func (r *SQLiteVulnerabilityRepository) List(ctx context.Context, organizationID string) ([]Vulnerability, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+vulnColumns+" FROM vulnerabilities WHERE organization_id = ? ORDER BY created_at DESC, id DESC",
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing vulnerabilities: %w", err)
	}
	defer rows.Close()

	var vulns []Vulnerability
	for rows.Next() {
		v, err := scanVulnerability(rows)
		if err != nil {
			return nil, err
		}
		vulns = append(vulns, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vulnerabilities: %w", err)
	}

	if vulns == nil {
		vulns = []Vulnerability{}
	}
	return vulns, nil
}

// GetByID retrieves one vulnerability scoped to the organization.
func (r *SQLiteVulnerabilityRepository) GetByID(ctx context.Context, organizationID, id string) (*Vulnerability, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+vulnColumns+" FROM vulnerabilities WHERE id = ? AND organization_id = ?",
		id, organizationID)
	return scanVulnerability(row)
}

// Update modifies a vulnerability's mutable fields within the organization.
func (r *SQLiteVulnerabilityRepository) Update(ctx context.Context, organizationID string, v *Vulnerability) error {
	now := time.Now().UTC()
	v.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE vulnerabilities SET name = ?, severity = ?, cvss_score = ?, description = ?, endpoint = ?, recommendation = ?, status = ?, updated_at = ?
		 WHERE id = ? AND organization_id = ?`,
		v.Name, v.Severity, nullFloat(v.CVSSScore), v.Description, v.Endpoint,
		v.Recommendation, v.Status, now.Format(time.RFC3339), v.ID, organizationID,
	)
	if err != nil {
		return fmt.Errorf("updating vulnerability: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOpenBySeverity counts open vulnerabilities of the given severity.
// Resolved and false-positive findings are excluded.
func (r *SQLiteVulnerabilityRepository) CountOpenBySeverity(ctx context.Context, organizationID, severity string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vulnerabilities
		 WHERE organization_id = ? AND severity = ? AND status = ?`,
		organizationID, severity, VulnOpen).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting vulnerabilities: %w", err)
	}
	return count, nil
}

// scanVulnerability scans a vulnerability from any scanner (Row or Rows).
func scanVulnerability(s scanner) (*Vulnerability, error) {
	var v Vulnerability
	var assetID, scanJobID sql.NullString
	var cvss sql.NullFloat64
	var createdAt, updatedAt string

	err := s.Scan(&v.ID, &v.OrganizationID, &assetID, &scanJobID, &v.Name,
		&v.Severity, &cvss, &v.Description, &v.Endpoint, &v.Recommendation,
		&v.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning vulnerability: %w", err)
	}

	if assetID.Valid {
		v.AssetID = assetID.String
	}
	if scanJobID.Valid {
		v.ScanJobID = scanJobID.String
	}
	if cvss.Valid {
		f := cvss.Float64
		v.CVSSScore = &f
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	v.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &v, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
