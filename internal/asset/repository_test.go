package asset

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the assets schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "asset-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Foreign keys left off so asset tests don't need org/user fixtures
	migrationSQL := `
		CREATE TABLE assets (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			ip TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			port INTEGER,
			tags TEXT NOT NULL DEFAULT '[]',
			metadata TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying assets migration: %v", err)
	}

	return db
}

func TestRepository_CreateStampsOrganization(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	port := 443
	a := &Asset{
		OrganizationID: "org-spoofed", // must be overwritten
		Name:           "prod-api",
		Type:           "server",
		IP:             "10.0.0.5",
		Port:           &port,
		Tags:           []string{"prod", "external"},
		Metadata:       map[string]any{"owner": "platform"},
	}

	if err := repo.Create(ctx, "org-acme", a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if a.OrganizationID != "org-acme" {
		t.Errorf("OrganizationID = %q, want org-acme (caller's tenant wins)", a.OrganizationID)
	}
	if a.Status != StatusActive {
		t.Errorf("Status = %q, want default %q", a.Status, StatusActive)
	}

	got, err := repo.GetByID(ctx, "org-acme", a.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "prod-api" || got.Type != "server" {
		t.Errorf("asset = %q/%q, want prod-api/server", got.Name, got.Type)
	}
	if got.Port == nil || *got.Port != 443 {
		t.Errorf("Port = %v, want 443", got.Port)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "prod" {
		t.Errorf("Tags = %v, want [prod external]", got.Tags)
	}
	if got.Metadata["owner"] != "platform" {
		t.Errorf("Metadata = %v, want owner=platform", got.Metadata)
	}
}

func TestRepository_CrossOrgLookupIsNotFound(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	a := &Asset{Name: "secret-host", Type: "server"}
	if err := repo.Create(ctx, "org-acme", a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A valid id requested under another org behaves like a missing id
	_, err := repo.GetByID(ctx, "org-other", a.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID cross-org error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, "org-other", a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete cross-org error = %v, want ErrNotFound", err)
	}

	a.Name = "renamed"
	if err := repo.Update(ctx, "org-other", a); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update cross-org error = %v, want ErrNotFound", err)
	}

	// Still present and unchanged for the owner
	got, err := repo.GetByID(ctx, "org-acme", a.ID)
	if err != nil {
		t.Fatalf("owner GetByID() error = %v", err)
	}
	if got.Name != "secret-host" {
		t.Errorf("Name = %q, cross-org update must not apply", got.Name)
	}
}

func TestRepository_ListIsScopedAndNewestFirst(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stamps := map[string]string{
		"first":  "2026-01-01T10:00:00Z",
		"second": "2026-01-02T10:00:00Z",
		"third":  "2026-01-03T10:00:00Z",
	}
	for name, stamp := range stamps {
		a := &Asset{Name: name, Type: "server"}
		if err := repo.Create(ctx, "org-acme", a); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
		// Pin created_at so the ordering assertion is deterministic
		if _, err := db.Exec("UPDATE assets SET created_at = ? WHERE id = ?", stamp, a.ID); err != nil {
			t.Fatalf("pinning created_at: %v", err)
		}
	}
	if err := repo.Create(ctx, "org-other", &Asset{Name: "foreign", Type: "server"}); err != nil {
		t.Fatalf("Create(foreign) error = %v", err)
	}

	assets, err := repo.List(ctx, "org-acme")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("List() returned %d assets, want 3", len(assets))
	}
	for _, a := range assets {
		if a.OrganizationID != "org-acme" {
			t.Errorf("asset %s leaked from org %q", a.Name, a.OrganizationID)
		}
	}
	want := []string{"third", "second", "first"}
	for i, a := range assets {
		if a.Name != want[i] {
			t.Errorf("assets[%d] = %q, want %q (newest first)", i, a.Name, want[i])
		}
	}
}

func TestRepository_ListEmpty(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)

	assets, err := repo.List(context.Background(), "org-empty")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if assets == nil {
		t.Error("List() should return an empty slice, not nil")
	}
	if len(assets) != 0 {
		t.Errorf("List() = %d assets, want 0", len(assets))
	}
}

func TestRepository_Update(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	a := &Asset{Name: "web", Type: "application", Status: StatusActive}
	if err := repo.Create(ctx, "org-acme", a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	a.Status = StatusArchived
	a.Tags = []string{"deprecated"}
	if err := repo.Update(ctx, "org-acme", a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "org-acme", a.ID)
	if got.Status != StatusArchived {
		t.Errorf("Status = %q, want %q", got.Status, StatusArchived)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "deprecated" {
		t.Errorf("Tags = %v, want [deprecated]", got.Tags)
	}
}
