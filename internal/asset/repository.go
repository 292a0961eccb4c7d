package asset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for asset persistence.
//
// Every method takes the organization id as an explicit parameter; there is
// no way to touch an asset without saying which tenant you are acting for.
// Single-row operations match on id AND organization in one predicate, so a
// cross-tenant id behaves exactly like a missing one.
type Repository interface {
	Create(ctx context.Context, organizationID string, a *Asset) error
	List(ctx context.Context, organizationID string) ([]Asset, error)
	GetByID(ctx context.Context, organizationID, id string) (*Asset, error)
	Update(ctx context.Context, organizationID string, a *Asset) error
	Delete(ctx context.Context, organizationID, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed asset repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const assetColumns = "id, organization_id, name, type, ip, domain, port, tags, metadata, status, created_at, updated_at"

// Create inserts a new asset stamped with the given organization.
// Any organization id already on the struct is overwritten — the caller's
// resolved tenant always wins.
func (r *SQLiteRepository) Create(ctx context.Context, organizationID string, a *Asset) error {
	if a.ID == "" {
		a.ID = "ast-" + uuid.NewString()[:8]
	}
	a.OrganizationID = organizationID
	if a.Status == "" {
		a.Status = StatusActive
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	nowStr := now.Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (id, organization_id, name, type, ip, domain, port, tags, metadata, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OrganizationID, a.Name, a.Type, a.IP, a.Domain, nullInt(a.Port),
		marshalStrings(a.Tags), marshalMap(a.Metadata), a.Status, nowStr, nowStr,
	)
	if err != nil {
		return fmt.Errorf("creating asset: %w", err)
	}
	return nil
}

// List returns the organization's assets, newest first.
func (r *SQLiteRepository) List(ctx context.Context, organizationID string) ([]Asset, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE organization_id = ? ORDER BY created_at DESC, id DESC",
		organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assets: %w", err)
	}

	if assets == nil {
		assets = []Asset{}
	}
	return assets, nil
}

// GetByID retrieves one asset scoped to the organization.
func (r *SQLiteRepository) GetByID(ctx context.Context, organizationID, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE id = ? AND organization_id = ?",
		id, organizationID)
	return scanAsset(row)
}

// Update modifies an asset's mutable fields within the organization.
func (r *SQLiteRepository) Update(ctx context.Context, organizationID string, a *Asset) error {
	now := time.Now().UTC()
	a.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE assets SET name = ?, type = ?, ip = ?, domain = ?, port = ?, tags = ?, metadata = ?, status = ?, updated_at = ?
		 WHERE id = ? AND organization_id = ?`,
		a.Name, a.Type, a.IP, a.Domain, nullInt(a.Port),
		marshalStrings(a.Tags), marshalMap(a.Metadata), a.Status,
		now.Format(time.RFC3339), a.ID, organizationID,
	)
	if err != nil {
		return fmt.Errorf("updating asset: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an asset within the organization.
func (r *SQLiteRepository) Delete(ctx context.Context, organizationID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM assets WHERE id = ? AND organization_id = ?",
		id, organizationID)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanAsset scans an asset from any scanner (Row or Rows).
func scanAsset(s scanner) (*Asset, error) {
	var a Asset
	var port sql.NullInt64
	var tags, metadata string
	var createdAt, updatedAt string

	err := s.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.Type, &a.IP, &a.Domain,
		&port, &tags, &metadata, &a.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning asset: %w", err)
	}

	if port.Valid {
		p := int(port.Int64)
		a.Port = &p
	}
	a.Tags = unmarshalStrings(tags)
	a.Metadata = unmarshalMap(metadata)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &a, nil
}

// JSON column helpers.

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
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
