package compliance

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the compliance schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "compliance-test-*.db")
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

	migrationSQL := `
		CREATE TABLE compliance_scores (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			framework TEXT NOT NULL,
			score INTEGER NOT NULL,
			max_score INTEGER NOT NULL DEFAULT 100,
			gaps TEXT NOT NULL DEFAULT '[]',
			recommendations TEXT NOT NULL DEFAULT '[]',
			assessment_date TEXT NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying compliance migration: %v", err)
	}

	return db
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func TestRepository_CreateDefaults(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	s := &Score{Framework: "SOC2", Score: 80}
	if err := repo.Create(ctx, "org-acme", s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if s.MaxScore != 100 {
		t.Errorf("MaxScore = %d, want default 100", s.MaxScore)
	}
	if s.AssessmentDate.IsZero() {
		t.Error("AssessmentDate should default to now")
	}

	got, err := repo.GetByID(ctx, "org-acme", s.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Framework != "SOC2" || got.Score != 80 {
		t.Errorf("score = %q/%d, want SOC2/80", got.Framework, got.Score)
	}
	if got.Gaps == nil || got.Recommendations == nil {
		t.Error("JSON array fields should unmarshal to empty slices, not nil")
	}
}

func TestRepository_LatestPerFramework(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seed := []struct {
		id, framework string
		score         int
		when          string
	}{
		{"cmp-soc2-old", "SOC2", 60, "2026-01-01T00:00:00Z"},
		{"cmp-soc2-new", "SOC2", 80, "2026-02-01T00:00:00Z"},
		{"cmp-iso-only", "ISO27001", 50, "2026-01-15T00:00:00Z"},
	}
	for _, row := range seed {
		s := &Score{ID: row.id, Framework: row.framework, Score: row.score,
			AssessmentDate: date(t, row.when)}
		if err := repo.Create(ctx, "org-acme", s); err != nil {
			t.Fatalf("Create(%s) error = %v", row.id, err)
		}
	}
	// Another org's newer SOC2 row must not leak in
	other := &Score{Framework: "SOC2", Score: 99, AssessmentDate: date(t, "2026-03-01T00:00:00Z")}
	if err := repo.Create(ctx, "org-other", other); err != nil {
		t.Fatalf("Create(other) error = %v", err)
	}

	latest, err := repo.LatestPerFramework(ctx, "org-acme")
	if err != nil {
		t.Fatalf("LatestPerFramework() error = %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("LatestPerFramework() = %d rows, want 2", len(latest))
	}

	byFramework := map[string]Score{}
	for _, s := range latest {
		byFramework[s.Framework] = s
	}
	if byFramework["SOC2"].ID != "cmp-soc2-new" {
		t.Errorf("SOC2 latest = %q, want cmp-soc2-new", byFramework["SOC2"].ID)
	}
	if byFramework["ISO27001"].Score != 50 {
		t.Errorf("ISO27001 score = %d, want 50", byFramework["ISO27001"].Score)
	}
}

func TestRepository_LatestPerFramework_TieBreaksOnID(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	when := date(t, "2026-02-01T00:00:00Z")
	for _, id := range []string{"cmp-a", "cmp-b"} {
		s := &Score{ID: id, Framework: "GDPR", Score: 70, AssessmentDate: when}
		if err := repo.Create(ctx, "org-acme", s); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	latest, err := repo.LatestPerFramework(ctx, "org-acme")
	if err != nil {
		t.Fatalf("LatestPerFramework() error = %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("LatestPerFramework() = %d rows, want 1", len(latest))
	}
	if latest[0].ID != "cmp-b" {
		t.Errorf("tie winner = %q, want cmp-b (highest id)", latest[0].ID)
	}
}

func TestAveragePercentage(t *testing.T) {
	tests := []struct {
		name   string
		scores []Score
		want   int
	}{
		{"empty", nil, 0},
		{"single", []Score{{Score: 80, MaxScore: 100}}, 80},
		{"mixed", []Score{{Score: 80, MaxScore: 100}, {Score: 50, MaxScore: 100}}, 65},
		{"non-hundred max", []Score{{Score: 40, MaxScore: 50}}, 80},
		{"rounds to nearest", []Score{{Score: 1, MaxScore: 3}, {Score: 1, MaxScore: 3}}, 33},
		{"zero max score", []Score{{Score: 10, MaxScore: 0}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AveragePercentage(tt.scores); got != tt.want {
				t.Errorf("AveragePercentage() = %d, want %d", got, tt.want)
			}
		})
	}
}
