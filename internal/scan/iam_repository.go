package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IAMRepository defines the interface for IAM access review persistence.
type IAMRepository interface {
	Create(ctx context.Context, organizationID string, rec *IAMRecord) error
	List(ctx context.Context, organizationID string) ([]IAMRecord, error)
	GetByID(ctx context.Context, organizationID, id string) (*IAMRecord, error)
}

// SQLiteIAMRepository implements IAMRepository using SQLite.
type SQLiteIAMRepository struct {
	db *sql.DB
}

// NewIAMRepository creates a new SQLite-backed IAM record repository.
func NewIAMRepository(db *sql.DB) *SQLiteIAMRepository {
	return &SQLiteIAMRepository{db: db}
}

const iamColumns = "id, organization_id, scan_job_id, platform, user_email, role, mfa_enabled, last_login, permissions, is_over_privileged, created_at"

// Create inserts a new IAM record stamped with the organization.
func (r *SQLiteIAMRepository) Create(ctx context.Context, organizationID string, rec *IAMRecord) error {
	if rec.ID == "" {
		rec.ID = "iam-" + uuid.NewString()[:8]
	}
	rec.OrganizationID = organizationID

	now := time.Now().UTC()
	rec.CreatedAt = now

	var lastLogin sql.NullString
	if rec.LastLogin != nil {
		lastLogin = sql.NullString{String: rec.LastLogin.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO iam_records (id, organization_id, scan_job_id, platform, user_email, role, mfa_enabled, last_login, permissions, is_over_privileged, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OrganizationID, nullString(rec.ScanJobID), rec.Platform,
		rec.UserEmail, rec.Role, boolToInt(rec.MFAEnabled), lastLogin,
		marshalStrings(rec.Permissions), boolToInt(rec.IsOverPrivileged),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating iam record: %w", err)
	}
	return nil
}

// List returns the organization's IAM records, newest first.
func (r *SQLiteIAMRepository) List(ctx context.Context, organizationID string) ([]IAMRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+iamColumns+" FROM iam_records WHERE organization_id = ? ORDER BY created_at DESC, id DESC",
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing iam records: %w", err)
	}
	defer rows.Close()

	var records []IAMRecord
	for rows.Next() {
		rec, err := scanIAMRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating iam records: %w", err)
	}

	if records == nil {
		records = []IAMRecord{}
	}
	return records, nil
}

// GetByID retrieves one IAM record scoped to the organization.
func (r *SQLiteIAMRepository) GetByID(ctx context.Context, organizationID, id string) (*IAMRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+iamColumns+" FROM iam_records WHERE id = ? AND organization_id = ?",
		id, organizationID)
	return scanIAMRecord(row)
}

// scanIAMRecord scans an IAM record from any scanner (Row or Rows).
func scanIAMRecord(s scanner) (*IAMRecord, error) {
	var rec IAMRecord
	var scanJobID, lastLogin sql.NullString
	var mfa, overPriv int
	var permissions, createdAt string

	err := s.Scan(&rec.ID, &rec.OrganizationID, &scanJobID, &rec.Platform,
		&rec.UserEmail, &rec.Role, &mfa, &lastLogin, &permissions,
		&overPriv, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning iam record: %w", err)
	}

	if scanJobID.Valid {
		rec.ScanJobID = scanJobID.String
	}
	rec.MFAEnabled = mfa != 0
	rec.IsOverPrivileged = overPriv != 0
	if lastLogin.Valid {
		t, _ := time.Parse(time.RFC3339, lastLogin.String) //nolint:errcheck // format is controlled
		rec.LastLogin = &t
	}
	rec.Permissions = unmarshalStrings(permissions)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &rec, nil
}
