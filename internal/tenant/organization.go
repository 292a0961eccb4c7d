// Package tenant manages organizations, the unit of isolation in
// SecureWatch. Every scoped entity carries an organization id, and the
// registration flow creates the organization and its first admin in one
// transaction so a half-registered tenant can never exist.
package tenant

import (
	"errors"
	"strings"
	"time"
)

// Organization represents a registered tenant. Settings is an opaque
// key-value blob owned by the dashboard; the server stores and returns
// it without interpreting the keys.
type Organization struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Domain    string         `json:"domain"`
	Timezone  string         `json:"timezone"`
	Settings  map[string]any `json:"settings"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Sentinel errors for tenant operations.
var (
	ErrNotFound = errors.New("organization not found")
)

// DomainFromEmail derives the organization domain from the registering
// admin's email address: everything after the "@". Returns "" when the
// email has no "@".
func DomainFromEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
