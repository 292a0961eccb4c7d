package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a pragmatic email shape check: local part, @, domain with
// at least one dot. Full RFC 5322 validation is not attempted.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	// maxEmailLength caps stored email addresses.
	maxEmailLength = 254

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 6
)

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// IsValidPassword checks if a password meets the minimum length requirement.
func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleUser is a standard organization member: read access plus
	// asset/scan creation within their own organization.
	RoleUser Role = "user"

	// RoleAuditor is a read-focused reviewer role. Auditors can record
	// findings (IAM records) but cannot delete tenant data.
	RoleAuditor Role = "auditor"

	// RoleOrgAdmin administers a single organization: destructive
	// operations, compliance assessments, member-visible settings.
	RoleOrgAdmin Role = "org_admin"

	// RoleSuperAdmin is an operator role with org_admin powers everywhere.
	// Never assigned through the public registration flow.
	RoleSuperAdmin Role = "super_admin"
)

// ValidRoles is the set of assignable user roles.
var ValidRoles = []Role{RoleUser, RoleAuditor, RoleOrgAdmin, RoleSuperAdmin}

// IsValidRole returns true if the role is a recognised user role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// IsAdmin returns true for roles permitted destructive tenant operations.
func (r Role) IsAdmin() bool {
	return r == RoleOrgAdmin || r == RoleSuperAdmin
}

// User represents an authenticated account. Email is the login identifier
// and is globally unique across all organizations.
type User struct {
	ID              string    `json:"id"`
	OrganizationID  string    `json:"organizationId,omitempty"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"` // never serialised
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Role            Role      `json:"role"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Session represents a stored login session. Only the SHA-256 hash of the
// opaque cookie value is persisted; the raw value exists only in the
// Set-Cookie response and the client's cookie jar.
//
// ExpiresAt is absolute: creation time plus the configured TTL. It is never
// extended by activity.
type Session struct {
	ID        string    `json:"id"`
	TokenHash string    `json:"-"` // never serialised
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session's absolute lifetime has passed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrSessionInvalid     = errors.New("session invalid or expired")
	ErrForbidden          = errors.New("insufficient permissions")
)
