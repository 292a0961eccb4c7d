package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for report persistence.
type Repository interface {
	Create(ctx context.Context, organizationID string, rep *Report) error
	List(ctx context.Context, organizationID string) ([]Report, error)
	GetByID(ctx context.Context, organizationID, id string) (*Report, error)
	// SetStatus records a generator-reported outcome. fileURL is stored
	// only when non-empty.
	SetStatus(ctx context.Context, organizationID, id, status, fileURL string) (*Report, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed report repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const reportColumns = "id, organization_id, name, type, file_url, status, parameters, generated_by, created_at"

// Create inserts a new report stamped with the organization and status
// generating. The caller's resolved tenant always wins.
func (r *SQLiteRepository) Create(ctx context.Context, organizationID string, rep *Report) error {
	if rep.ID == "" {
		rep.ID = "rpt-" + uuid.NewString()[:8]
	}
	rep.OrganizationID = organizationID
	rep.Status = StatusGenerating
	rep.FileURL = ""

	now := time.Now().UTC()
	rep.CreatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, organization_id, name, type, file_url, status, parameters, generated_by, created_at)
		 VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?)`,
		rep.ID, rep.OrganizationID, rep.Name, rep.Type, rep.Status,
		marshalMap(rep.Parameters), rep.GeneratedBy, now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	return nil
}

// List returns the organization's reports, newest first.
func (r *SQLiteRepository) List(ctx context.Context, organizationID string) ([]Report, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE organization_id = ? ORDER BY created_at DESC, id DESC",
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}

	if reports == nil {
		reports = []Report{}
	}
	return reports, nil
}

// GetByID retrieves one report scoped to the organization.
func (r *SQLiteRepository) GetByID(ctx context.Context, organizationID, id string) (*Report, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = ? AND organization_id = ?",
		id, organizationID)
	return scanReport(row)
}

// SetStatus applies a generator-reported status within the organization.
func (r *SQLiteRepository) SetStatus(ctx context.Context, organizationID, id, status, fileURL string) (*Report, error) {
	var result sql.Result
	var err error
	if fileURL != "" {
		result, err = r.db.ExecContext(ctx,
			"UPDATE reports SET status = ?, file_url = ? WHERE id = ? AND organization_id = ?",
			status, fileURL, id, organizationID)
	} else {
		result, err = r.db.ExecContext(ctx,
			"UPDATE reports SET status = ? WHERE id = ? AND organization_id = ?",
			status, id, organizationID)
	}
	if err != nil {
		return nil, fmt.Errorf("updating report status: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, organizationID, id)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanReport scans a report from any scanner (Row or Rows).
func scanReport(s scanner) (*Report, error) {
	var rep Report
	var fileURL sql.NullString
	var parameters, createdAt string

	err := s.Scan(&rep.ID, &rep.OrganizationID, &rep.Name, &rep.Type,
		&fileURL, &rep.Status, &parameters, &rep.GeneratedBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	if fileURL.Valid {
		rep.FileURL = fileURL.String
	}
	rep.Parameters = unmarshalMap(parameters)
	rep.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &rep, nil
}

func marshalMap(v map[string]any) string {
	if v == nil {
		v = map[string]any{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func unmarshalMap(s string) map[string]any {
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return map[string]any{}
	}
	return v
}
