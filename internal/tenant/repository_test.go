package tenant

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/securewatch/securewatch-core/internal/auth"
)

// testDB creates a temporary SQLite database with the tenant schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "tenant-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			domain TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			settings TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			organization_id TEXT REFERENCES organizations(id) ON DELETE SET NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user',
			is_email_verified INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying tenant migration: %v", err)
	}

	return db
}

func TestOrganizationRepository_CreateWithAdmin(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()

	hash, _ := auth.HashPassword("secret1")
	org := &Organization{Name: "acme.com", Domain: "acme.com"}
	admin := &auth.User{
		Email:        "founder@acme.com",
		PasswordHash: hash,
		FirstName:    "Ada",
		LastName:     "Lovelace",
	}

	if err := repo.CreateWithAdmin(ctx, org, admin); err != nil {
		t.Fatalf("CreateWithAdmin() error = %v", err)
	}

	if org.ID == "" {
		t.Fatal("organization ID should be generated")
	}
	if admin.OrganizationID != org.ID {
		t.Errorf("admin.OrganizationID = %q, want %q", admin.OrganizationID, org.ID)
	}
	if admin.Role != auth.RoleOrgAdmin {
		t.Errorf("admin.Role = %q, want %q", admin.Role, auth.RoleOrgAdmin)
	}

	got, err := repo.GetByID(ctx, org.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "acme.com" || got.Domain != "acme.com" {
		t.Errorf("organization = %q/%q, want acme.com/acme.com", got.Name, got.Domain)
	}
	if got.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC default", got.Timezone)
	}

	userRepo := auth.NewUserRepository(db)
	gotAdmin, err := userRepo.GetByEmail(ctx, "founder@acme.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if gotAdmin.OrganizationID != org.ID {
		t.Errorf("stored admin org = %q, want %q", gotAdmin.OrganizationID, org.ID)
	}
}

func TestOrganizationRepository_CreateWithAdmin_DuplicateEmailRollsBack(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()

	hash, _ := auth.HashPassword("secret1")
	first := &Organization{Name: "acme.com", Domain: "acme.com"}
	if err := repo.CreateWithAdmin(ctx, first, &auth.User{
		Email: "founder@acme.com", PasswordHash: hash,
	}); err != nil {
		t.Fatalf("first CreateWithAdmin() error = %v", err)
	}

	// Second registration with the same email must fail...
	second := &Organization{Name: "acme.com", Domain: "acme.com"}
	err := repo.CreateWithAdmin(ctx, second, &auth.User{
		Email: "founder@acme.com", PasswordHash: hash,
	})
	if !errors.Is(err, auth.ErrEmailExists) {
		t.Fatalf("error = %v, want auth.ErrEmailExists", err)
	}

	// ...and must not leave an orphaned organization behind
	var orgCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM organizations").Scan(&orgCount); err != nil {
		t.Fatalf("counting organizations: %v", err)
	}
	if orgCount != 1 {
		t.Errorf("organizations = %d, want 1 (rollback should remove the second)", orgCount)
	}
}

func TestOrganizationRepository_GetByID_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepository(db)

	_, err := repo.GetByID(context.Background(), "org-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestOrganizationRepository_Update(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepository(db)
	ctx := context.Background()

	hash, _ := auth.HashPassword("secret1")
	org := &Organization{Name: "acme.com", Domain: "acme.com"}
	if err := repo.CreateWithAdmin(ctx, org, &auth.User{
		Email: "founder@acme.com", PasswordHash: hash,
	}); err != nil {
		t.Fatalf("CreateWithAdmin() error = %v", err)
	}

	org.Name = "Acme Corp"
	org.Timezone = "Europe/London"
	org.Settings = map[string]any{"scanWindow": "02:00-04:00"}
	if err := repo.Update(ctx, org); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, org.ID)
	if got.Name != "Acme Corp" {
		t.Errorf("Name = %q, want %q", got.Name, "Acme Corp")
	}
	if got.Timezone != "Europe/London" {
		t.Errorf("Timezone = %q, want %q", got.Timezone, "Europe/London")
	}
	if got.Settings["scanWindow"] != "02:00-04:00" {
		t.Errorf("Settings = %v, want persisted blob", got.Settings)
	}
}

func TestDomainFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"admin@acme.com", "acme.com"},
		{"a@b.co", "b.co"},
		{"weird@local@acme.com", "acme.com"},
		{"no-at-sign", ""},
		{"trailing@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := DomainFromEmail(tt.email); got != tt.want {
				t.Errorf("DomainFromEmail(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}
