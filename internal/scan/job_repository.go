package scan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StatusUpdate carries a status transition reported by a scan engine.
type StatusUpdate struct {
	Status   string
	Progress int
	Results  map[string]any
}

// JobRepository defines the interface for scan job persistence.
// Every method is organization-scoped; see the asset repository for the
// isolation contract.
type JobRepository interface {
	Create(ctx context.Context, organizationID string, j *Job) error
	List(ctx context.Context, organizationID string) ([]Job, error)
	GetByID(ctx context.Context, organizationID, id string) (*Job, error)
	ApplyStatus(ctx context.Context, organizationID, id string, upd StatusUpdate) (*Job, error)
}

// SQLiteJobRepository implements JobRepository using SQLite.
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new SQLite-backed scan job repository.
func NewJobRepository(db *sql.DB) *SQLiteJobRepository {
	return &SQLiteJobRepository{db: db}
}

const jobColumns = "id, organization_id, asset_id, type, name, status, progress, results, started_at, completed_at, created_by, created_at"

// Create inserts a new scan job stamped with the organization and status
// pending. The caller's resolved tenant always wins over anything on the
// struct.
func (r *SQLiteJobRepository) Create(ctx context.Context, organizationID string, j *Job) error {
	if j.ID == "" {
		j.ID = "scn-" + uuid.NewString()[:8]
	}
	j.OrganizationID = organizationID
	j.Status = JobPending
	j.Progress = 0

	now := time.Now().UTC()
	j.CreatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scan_jobs (id, organization_id, asset_id, type, name, status, progress, results, started_at, completed_at, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, NULL, NULL, NULL, ?, ?)`,
		j.ID, j.OrganizationID, nullString(j.AssetID), j.Type, j.Name, j.Status,
		j.CreatedBy, now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating scan job: %w", err)
	}
	return nil
}

// List returns the organization's scan jobs, newest first.
func (r *SQLiteJobRepository) List(ctx context.Context, organizationID string) ([]Job, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM scan_jobs WHERE organization_id = ? ORDER BY created_at DESC, id DESC",
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing scan jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scan jobs: %w", err)
	}

	if jobs == nil {
		jobs = []Job{}
	}
	return jobs, nil
}

// GetByID retrieves one scan job scoped to the organization.
func (r *SQLiteJobRepository) GetByID(ctx context.Context, organizationID, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM scan_jobs WHERE id = ? AND organization_id = ?",
		id, organizationID)
	return scanJob(row)
}

// ApplyStatus applies an engine-reported status transition and returns the
// updated job. started_at is stamped on the first move to running,
// completed_at on reaching a terminal status. Returns ErrInvalidTransition
// when the current status does not permit the move.
func (r *SQLiteJobRepository) ApplyStatus(ctx context.Context, organizationID, id string, upd StatusUpdate) (*Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning status transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	var current string
	var startedAt sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT status, started_at FROM scan_jobs WHERE id = ? AND organization_id = ?",
		id, organizationID).Scan(&current, &startedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading scan job status: %w", err)
	}

	if !IsValidJobTransition(current, upd.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, upd.Status)
	}

	// Workers report progress; never trust it past the bounds.
	if upd.Progress < 0 {
		upd.Progress = 0
	} else if upd.Progress > 100 {
		upd.Progress = 100
	}

	now := time.Now().UTC().Format(time.RFC3339)
	newStarted := startedAt
	if upd.Status == JobRunning && !startedAt.Valid {
		newStarted = sql.NullString{String: now, Valid: true}
	}
	var completed sql.NullString
	if upd.Status == JobCompleted || upd.Status == JobFailed {
		completed = sql.NullString{String: now, Valid: true}
		if !newStarted.Valid {
			newStarted = sql.NullString{String: now, Valid: true}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE scan_jobs SET status = ?, progress = ?, results = ?, started_at = ?, completed_at = ?
		 WHERE id = ? AND organization_id = ?`,
		upd.Status, upd.Progress, nullJSON(upd.Results), newStarted, completed,
		id, organizationID,
	); err != nil {
		return nil, fmt.Errorf("applying scan status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing scan status: %w", err)
	}

	return r.GetByID(ctx, organizationID, id)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanJob scans a scan job from any scanner (Row or Rows).
func scanJob(s scanner) (*Job, error) {
	var j Job
	var assetID, results, startedAt, completedAt sql.NullString
	var createdAt string

	err := s.Scan(&j.ID, &j.OrganizationID, &assetID, &j.Type, &j.Name,
		&j.Status, &j.Progress, &results, &startedAt, &completedAt,
		&j.CreatedBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning scan job: %w", err)
	}

	if assetID.Valid {
		j.AssetID = assetID.String
	}
	if results.Valid {
		var m map[string]any
		if err := json.Unmarshal([]byte(results.String), &m); err == nil {
			j.Results = m
		}
	}
	if startedAt.Valid {
		t, _ := time.Parse(time.RFC3339, startedAt.String) //nolint:errcheck // format is controlled
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String) //nolint:errcheck // format is controlled
		j.CompletedAt = &t
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &j, nil
}

// Helper functions shared by the scan repositories.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullJSON(m map[string]any) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v) //nolint:errcheck // string slices always marshal
	return string(b)
}

func unmarshalStrings(s string) []string {
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return []string{}
	}
	return v
}
