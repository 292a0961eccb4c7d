package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionRepository_CreateAndValidate(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")
	user := seedTestUser(t, db, "login@acme.example.com", org, RoleOrgAdmin)

	raw, session, err := repo.Create(ctx, user.ID, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if raw == "" {
		t.Fatal("Create() should return a raw token")
	}
	if len(raw) != 64 {
		t.Errorf("raw token length = %d, want 64 hex chars (256 bits)", len(raw))
	}
	if session.TokenHash == raw {
		t.Error("stored hash must not equal the raw token")
	}
	if session.TokenHash != HashToken(raw) {
		t.Error("stored hash should be the SHA-256 of the raw token")
	}

	got, err := repo.Validate(ctx, raw)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", got.UserID, user.ID)
	}
}

func TestSessionRepository_Validate_UnknownToken(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)

	_, err := repo.Validate(context.Background(), "not-a-real-token")
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("error = %v, want ErrSessionInvalid", err)
	}
}

func TestSessionRepository_Validate_Expired(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")
	user := seedTestUser(t, db, "expired@acme.example.com", org, RoleUser)

	// Negative TTL produces an already-expired session
	raw, _, err := repo.Create(ctx, user.ID, -time.Minute)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = repo.Validate(ctx, raw)
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("error = %v, want ErrSessionInvalid", err)
	}

	// The expired row should have been removed lazily
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sessions WHERE user_id = ?", user.ID).Scan(&count); err != nil {
		t.Fatalf("counting sessions: %v", err)
	}
	if count != 0 {
		t.Errorf("expired session rows = %d, want 0 after lazy cleanup", count)
	}
}

func TestSessionRepository_AbsoluteExpiry(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")
	user := seedTestUser(t, db, "absolute@acme.example.com", org, RoleUser)

	raw, created, err := repo.Create(ctx, user.ID, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Validation must not slide the expiry forward
	for i := 0; i < 3; i++ {
		if _, err := repo.Validate(ctx, raw); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
	}

	var expiresAt string
	if err := db.QueryRow("SELECT expires_at FROM sessions WHERE id = ?", created.ID).Scan(&expiresAt); err != nil {
		t.Fatalf("reading expiry: %v", err)
	}
	stored, _ := time.Parse(time.RFC3339, expiresAt)
	if !stored.Equal(created.ExpiresAt.Truncate(time.Second)) {
		t.Errorf("expires_at = %v, want unchanged %v", stored, created.ExpiresAt.Truncate(time.Second))
	}
}

func TestSessionRepository_Destroy_Idempotent(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")
	user := seedTestUser(t, db, "logout@acme.example.com", org, RoleUser)

	raw, _, err := repo.Create(ctx, user.ID, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Destroy(ctx, raw); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	// Second destroy of the same token succeeds
	if err := repo.Destroy(ctx, raw); err != nil {
		t.Fatalf("second Destroy() error = %v", err)
	}

	_, err = repo.Validate(ctx, raw)
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("after destroy, Validate error = %v, want ErrSessionInvalid", err)
	}
}

func TestSessionRepository_RevokeAllForUser(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")
	user := seedTestUser(t, db, "revoke@acme.example.com", org, RoleUser)
	other := seedTestUser(t, db, "keep@acme.example.com", org, RoleUser)

	raw1, _, _ := repo.Create(ctx, user.ID, time.Hour)
	raw2, _, _ := repo.Create(ctx, user.ID, time.Hour)
	rawOther, _, _ := repo.Create(ctx, other.ID, time.Hour)

	if err := repo.RevokeAllForUser(ctx, user.ID); err != nil {
		t.Fatalf("RevokeAllForUser() error = %v", err)
	}

	for _, raw := range []string{raw1, raw2} {
		if _, err := repo.Validate(ctx, raw); !errors.Is(err, ErrSessionInvalid) {
			t.Errorf("revoked session Validate error = %v, want ErrSessionInvalid", err)
		}
	}

	// Other users' sessions survive
	if _, err := repo.Validate(ctx, rawOther); err != nil {
		t.Errorf("other user's session Validate error = %v, want nil", err)
	}
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")
	user := seedTestUser(t, db, "sweep@acme.example.com", org, RoleUser)

	_, _, _ = repo.Create(ctx, user.ID, -time.Minute)
	_, _, _ = repo.Create(ctx, user.ID, -time.Hour)
	live, _, _ := repo.Create(ctx, user.ID, time.Hour)

	deleted, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteExpired() = %d, want 2", deleted)
	}

	if _, err := repo.Validate(ctx, live); err != nil {
		t.Errorf("live session Validate error = %v, want nil", err)
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Error("HashToken should be deterministic")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Error("different tokens should hash differently")
	}
	if len(HashToken("abc")) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(HashToken("abc")))
	}
}
