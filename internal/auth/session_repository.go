package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// rawTokenBytes is the entropy of a session token (256 bits).
const rawTokenBytes = 32

// SessionRepository defines the interface for session persistence.
//
// Sessions are opaque: the raw token handed to the client is random and
// carries no data. Only its SHA-256 hash is stored, so a leaked database
// does not yield usable cookies.
type SessionRepository interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (string, *Session, error)
	Validate(ctx context.Context, rawToken string) (*Session, error)
	Destroy(ctx context.Context, rawToken string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteSessionRepository implements SessionRepository using SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed session repository.
func NewSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// HashToken computes the SHA-256 hash of a raw session token for storage.
// Raw tokens are never stored — only their hashes.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// generateToken returns a new random session token as lowercase hex.
func generateToken() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create inserts a new session for the user and returns the raw token.
//
// The expiry is absolute: now + ttl, never extended afterwards. The raw
// token is returned exactly once; callers put it in the cookie and forget it.
func (r *SQLiteSessionRepository) Create(ctx context.Context, userID string, ttl time.Duration) (string, *Session, error) {
	raw, err := generateToken()
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	s := &Session{
		ID:        "ses-" + uuid.NewString()[:16],
		TokenHash: HashToken(raw),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token_hash, user_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.TokenHash, s.UserID,
		s.CreatedAt.Format(time.RFC3339),
		s.ExpiresAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", nil, fmt.Errorf("creating session: %w", err)
	}

	return raw, s, nil
}

// Validate looks up a session by its raw token.
//
// Unknown tokens and expired sessions both return ErrSessionInvalid; callers
// cannot distinguish the two. Expired rows are deleted lazily here, so a
// sweep is hygiene rather than a correctness requirement.
//
// Infrastructure failures are returned as wrapped errors, NOT as
// ErrSessionInvalid: a broken session store must surface as a dependency
// failure, never as a silent logout.
func (r *SQLiteSessionRepository) Validate(ctx context.Context, rawToken string) (*Session, error) {
	var s Session
	var createdAt, expiresAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, token_hash, user_id, created_at, expires_at
		 FROM sessions WHERE token_hash = ?`, HashToken(rawToken),
	).Scan(&s.ID, &s.TokenHash, &s.UserID, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	s.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled

	if s.Expired(time.Now().UTC()) {
		// Lazy cleanup; failure here doesn't change the outcome.
		_, _ = r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", s.ID) //nolint:errcheck // best effort
		return nil, ErrSessionInvalid
	}

	return &s, nil
}

// Destroy removes the session matching the raw token.
// Destroying a session that doesn't exist is not an error — logout is
// idempotent.
func (r *SQLiteSessionRepository) Destroy(ctx context.Context, rawToken string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE token_hash = ?", HashToken(rawToken))
	if err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// RevokeAllForUser removes every session for a user.
// Used on password changes and admin force-logout.
func (r *SQLiteSessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("revoking sessions for user: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their absolute expiry, freeing storage.
// Returns the number of deleted rows.
func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
