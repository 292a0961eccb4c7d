// Package auth provides authentication for SecureWatch Core.
//
// It implements a 4-tier role model (user → auditor → org_admin → super_admin)
// with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Opaque server-side sessions with an absolute 7-day lifetime
//   - SHA-256 hashed session tokens (raw cookie values are never stored)
//   - Globally unique email addresses as login identifiers
//
// Sessions are deliberately not claims-based: the only thing a cookie carries
// is a random token, and every request resolves the user and organization
// from the session store. Revocation is therefore immediate - destroying the
// session row ends access on the next request.
package auth
