package auth

import (
	"context"
	"errors"
	"testing"
)

func TestUserRepository_CreateAndGetByID(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")

	hash, _ := HashPassword("password123")
	user := &User{
		OrganizationID: org,
		Email:          "test@acme.example.com",
		PasswordHash:   hash,
		FirstName:      "Test",
		LastName:       "User",
		Role:           RoleOrgAdmin,
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Fatal("Create() should generate an ID")
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Email != "test@acme.example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "test@acme.example.com")
	}
	if got.OrganizationID != org {
		t.Errorf("OrganizationID = %q, want %q", got.OrganizationID, org)
	}
	if got.FirstName != "Test" || got.LastName != "User" {
		t.Errorf("name = %q %q, want Test User", got.FirstName, got.LastName)
	}
	if got.Role != RoleOrgAdmin {
		t.Errorf("Role = %q, want %q", got.Role, RoleOrgAdmin)
	}
	if got.PasswordHash == "" {
		t.Error("PasswordHash should be populated")
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")

	user := seedTestUser(t, db, "admin@acme.example.com", org, RoleOrgAdmin)

	got, err := repo.GetByEmail(ctx, "admin@acme.example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}

	if got.ID != user.ID {
		t.Errorf("ID = %q, want %q", got.ID, user.ID)
	}
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")

	hash, _ := HashPassword("password123")
	user1 := &User{
		OrganizationID: org,
		Email:          "duplicate@acme.example.com",
		PasswordHash:   hash,
		Role:           RoleUser,
	}
	if err := repo.Create(ctx, user1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Duplicate email is rejected even across organizations
	other := seedTestOrg(t, db, "org-other", "other")
	user2 := &User{
		OrganizationID: other,
		Email:          "duplicate@acme.example.com",
		PasswordHash:   hash,
		Role:           RoleUser,
	}
	err := repo.Create(ctx, user2)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("error = %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_ListByOrganization(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")
	other := seedTestOrg(t, db, "org-other", "other")

	// Empty list
	users, err := repo.ListByOrganization(ctx, org)
	if err != nil {
		t.Fatalf("ListByOrganization() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("ListByOrganization() should return empty, got %d", len(users))
	}

	seedTestUser(t, db, "alice@acme.example.com", org, RoleOrgAdmin)
	seedTestUser(t, db, "bob@acme.example.com", org, RoleUser)
	seedTestUser(t, db, "eve@other.example.com", other, RoleOrgAdmin)

	users, err = repo.ListByOrganization(ctx, org)
	if err != nil {
		t.Fatalf("ListByOrganization() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("ListByOrganization() returned %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.OrganizationID != org {
			t.Errorf("user %s has org %q, want %q", u.Email, u.OrganizationID, org)
		}
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")

	user := seedTestUser(t, db, "updateme@acme.example.com", org, RoleUser)

	user.FirstName = "Updated"
	user.Email = "updated@acme.example.com"
	user.Role = RoleAuditor

	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, user.ID)
	if got.FirstName != "Updated" {
		t.Errorf("FirstName = %q, want %q", got.FirstName, "Updated")
	}
	if got.Email != "updated@acme.example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "updated@acme.example.com")
	}
	if got.Role != RoleAuditor {
		t.Errorf("Role = %q, want %q", got.Role, RoleAuditor)
	}
}

func TestUserRepository_Update_EmailConflict(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")

	seedTestUser(t, db, "taken@acme.example.com", org, RoleUser)
	user := seedTestUser(t, db, "mine@acme.example.com", org, RoleUser)

	user.Email = "taken@acme.example.com"
	err := repo.Update(ctx, user)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("error = %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")

	user := seedTestUser(t, db, "passchange@acme.example.com", org, RoleUser)

	newHash, _ := HashPassword("new-password")
	if err := repo.UpdatePassword(ctx, user.ID, newHash); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, user.ID)
	ok, _ := VerifyPassword("new-password", got.PasswordHash)
	if !ok {
		t.Error("new password should verify after UpdatePassword")
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")

	user := seedTestUser(t, db, "deleteme@acme.example.com", org, RoleUser)

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := repo.GetByID(ctx, user.ID)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("after delete, GetByID error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Delete_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	err := repo.Delete(context.Background(), "nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Count(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	org := seedTestOrg(t, db, "org-acme", "acme")

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	seedTestUser(t, db, "one@acme.example.com", org, RoleUser)
	seedTestUser(t, db, "two@acme.example.com", org, RoleUser)

	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"first.last@sub.example.co.uk", true},
		{"", false},
		{"no-at-sign", false},
		{"no-domain@", false},
		{"@no-local.com", false},
		{"spaces in@example.com", false},
		{"no-tld@example", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}
