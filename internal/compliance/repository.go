package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for compliance score persistence.
type Repository interface {
	Create(ctx context.Context, organizationID string, s *Score) error
	List(ctx context.Context, organizationID string) ([]Score, error)
	GetByID(ctx context.Context, organizationID, id string) (*Score, error)
	// LatestPerFramework returns the most recent assessment for each
	// framework the organization has been assessed against. Ties on
	// assessment_date are broken by the highest id.
	LatestPerFramework(ctx context.Context, organizationID string) ([]Score, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed compliance repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const scoreColumns = "id, organization_id, framework, score, max_score, gaps, recommendations, assessment_date, created_at"

// Create inserts a new compliance score stamped with the organization.
// An unset assessment date defaults to now; an unset max score to 100.
func (r *SQLiteRepository) Create(ctx context.Context, organizationID string, s *Score) error {
	if s.ID == "" {
		s.ID = "cmp-" + uuid.NewString()[:8]
	}
	s.OrganizationID = organizationID
	if s.MaxScore == 0 {
		s.MaxScore = 100
	}

	now := time.Now().UTC()
	s.CreatedAt = now
	if s.AssessmentDate.IsZero() {
		s.AssessmentDate = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO compliance_scores (id, organization_id, framework, score, max_score, gaps, recommendations, assessment_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.OrganizationID, s.Framework, s.Score, s.MaxScore,
		marshalStrings(s.Gaps), marshalStrings(s.Recommendations),
		s.AssessmentDate.UTC().Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating compliance score: %w", err)
	}
	return nil
}

// List returns the organization's assessments, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, organizationID string) ([]Score, error) {
	return r.queryScores(ctx,
		"SELECT "+scoreColumns+" FROM compliance_scores WHERE organization_id = ? ORDER BY assessment_date DESC, id DESC",
		organizationID)
}

// GetByID retrieves one assessment scoped to the organization.
func (r *SQLiteRepository) GetByID(ctx context.Context, organizationID, id string) (*Score, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+scoreColumns+" FROM compliance_scores WHERE id = ? AND organization_id = ?",
		id, organizationID)
	return scanScore(row)
}

// LatestPerFramework selects, for each framework, the row with the highest
// assessment_date (ties broken by id). Implemented with a correlated
// subquery so the selection happens in one statement.
func (r *SQLiteRepository) LatestPerFramework(ctx context.Context, organizationID string) ([]Score, error) {
	return r.queryScores(ctx, `
		SELECT `+scoreColumns+` FROM compliance_scores cs
		WHERE organization_id = ?
		  AND id = (
			SELECT id FROM compliance_scores
			WHERE organization_id = cs.organization_id AND framework = cs.framework
			ORDER BY assessment_date DESC, id DESC
			LIMIT 1
		  )
		ORDER BY framework ASC`,
		organizationID)
}

// queryScores executes a multi-row score query.
func (r *SQLiteRepository) queryScores(ctx context.Context, query string, args ...any) ([]Score, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying compliance scores: %w", err)
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating compliance scores: %w", err)
	}

	if scores == nil {
		scores = []Score{}
	}
	return scores, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanScore scans a compliance score from any scanner (Row or Rows).
func scanScore(sc scanner) (*Score, error) {
	var s Score
	var gaps, recommendations string
	var assessmentDate, createdAt string

	err := sc.Scan(&s.ID, &s.OrganizationID, &s.Framework, &s.Score, &s.MaxScore,
		&gaps, &recommendations, &assessmentDate, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning compliance score: %w", err)
	}

	s.Gaps = unmarshalStrings(gaps)
	s.Recommendations = unmarshalStrings(recommendations)
	s.AssessmentDate, _ = time.Parse(time.RFC3339, assessmentDate) //nolint:errcheck // format is controlled
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)           //nolint:errcheck // format is controlled

	return &s, nil
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
