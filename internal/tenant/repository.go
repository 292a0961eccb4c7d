package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/securewatch/securewatch-core/internal/auth"
)

// OrganizationRepository defines the interface for organization persistence.
type OrganizationRepository interface {
	CreateWithAdmin(ctx context.Context, org *Organization, admin *auth.User) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
}

// SQLiteOrganizationRepository implements OrganizationRepository using SQLite.
type SQLiteOrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new SQLite-backed organization repository.
func NewOrganizationRepository(db *sql.DB) *SQLiteOrganizationRepository {
	return &SQLiteOrganizationRepository{db: db}
}

// CreateWithAdmin creates an organization and its first admin user in a
// single transaction. If the admin's email is already registered, nothing
// is committed and auth.ErrEmailExists is returned.
//
// The admin's OrganizationID and Role are assigned here; callers only
// provide email, password hash and names.
func (r *SQLiteOrganizationRepository) CreateWithAdmin(ctx context.Context, org *Organization, admin *auth.User) error {
	if org.ID == "" {
		org.ID = "org-" + uuid.NewString()[:8]
	}
	if org.Timezone == "" {
		org.Timezone = "UTC"
	}
	if admin.ID == "" {
		admin.ID = "usr-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339)
	org.CreatedAt = now
	org.UpdatedAt = now
	admin.OrganizationID = org.ID
	admin.Role = auth.RoleOrgAdmin
	admin.CreatedAt = now
	admin.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning registration transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO organizations (id, name, domain, timezone, settings, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Domain, org.Timezone, marshalSettings(org.Settings), nowStr, nowStr,
	); err != nil {
		return fmt.Errorf("creating organization: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, organization_id, email, password_hash, first_name, last_name, role, is_email_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		admin.ID, admin.OrganizationID, admin.Email, admin.PasswordHash,
		admin.FirstName, admin.LastName, string(admin.Role), nowStr, nowStr,
	); err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailExists
		}
		return fmt.Errorf("creating admin user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing registration: %w", err)
	}
	return nil
}

// GetByID retrieves an organization by its unique ID.
func (r *SQLiteOrganizationRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	var o Organization
	var settings, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, domain, timezone, settings, created_at, updated_at
		 FROM organizations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.Domain, &o.Timezone, &settings, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting organization: %w", err)
	}

	o.Settings = map[string]any{}
	json.Unmarshal([]byte(settings), &o.Settings) //nolint:errcheck // column is controlled JSON

	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	o.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &o, nil
}

// Update modifies an organization's mutable fields (name, timezone,
// settings).
func (r *SQLiteOrganizationRepository) Update(ctx context.Context, org *Organization) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE organizations SET name = ?, timezone = ?, settings = ?, updated_at = ? WHERE id = ?`,
		org.Name, org.Timezone, marshalSettings(org.Settings), now, org.ID,
	)
	if err != nil {
		return fmt.Errorf("updating organization: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// marshalSettings serialises the settings blob, with "{}" for nil.
func marshalSettings(settings map[string]any) string {
	if len(settings) == 0 {
		return "{}"
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
