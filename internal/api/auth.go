package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/securewatch/securewatch-core/internal/audit"
	"github.com/securewatch/securewatch-core/internal/auth"
	"github.com/securewatch/securewatch-core/internal/tenant"
)

// registerRequest is the body for POST /api/auth/register.
type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
}

// loginRequest is the body for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// profileRequest is the body for PUT /api/auth/profile.
type profileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// handleRegister creates a new organization with its first admin user.
//
// The organization is derived from the registrant's email domain; both rows
// are written in one transaction so a half-registered tenant cannot exist.
// The new admin is logged in immediately.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if !auth.IsValidEmail(req.Email) {
		fields["email"] = "A valid email address is required"
	}
	if !auth.IsValidPassword(req.Password) {
		fields["password"] = "Password must be at least 6 characters"
	}
	if req.Password != req.ConfirmPassword {
		fields["confirmPassword"] = "Passwords do not match"
	}
	if req.FirstName == "" {
		fields["firstName"] = "First name is required"
	}
	if req.LastName == "" {
		fields["lastName"] = "Last name is required"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing registration password", "error", err)
		writeInternalError(w)
		return
	}

	domain := tenant.DomainFromEmail(req.Email)
	org := &tenant.Organization{
		Name:   domain,
		Domain: domain,
	}
	user := &auth.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         auth.RoleOrgAdmin,
	}

	if err := s.orgs.CreateWithAdmin(r.Context(), org, user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "An account with this email already exists")
			return
		}
		s.logger.Error("registration failed", "error", err)
		writeServiceUnavailable(w)
		return
	}

	if !s.issueSession(w, r, user.ID) {
		return
	}

	s.recordAudit(r, org.ID, user.ID, "register", "user", user.ID, nil)
	writeJSON(w, http.StatusCreated, user)
}

// handleLogin authenticates an email/password pair and issues a session
// cookie. Unknown email and wrong password produce the identical response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeInvalidCredentials(w)
			return
		}
		s.logger.Error("login lookup failed", "error", err)
		writeServiceUnavailable(w)
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("verifying password", "error", err, "user_id", user.ID)
		writeInternalError(w)
		return
	}
	if !ok {
		writeInvalidCredentials(w)
		return
	}

	if !s.issueSession(w, r, user.ID) {
		return
	}

	s.recordAudit(r, user.OrganizationID, user.ID, "login", "user", user.ID, nil)
	writeJSON(w, http.StatusOK, user)
}

// handleLogout destroys the caller's session, if any, and clears the
// cookie. Always 200: logging out twice is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.secCfg.Session.CookieName); err == nil && cookie.Value != "" {
		if err := s.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			s.logger.Warn("destroying session on logout", "error", err)
		}
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// handleCurrentUser returns the authenticated user's account.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ident.User)
}

// handleUpdateProfile updates the caller's own name and email.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email != "" && !auth.IsValidEmail(req.Email) {
		writeValidationError(w, map[string]string{"email": "A valid email address is required"})
		return
	}

	user := *ident.User
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}

	if err := s.users.Update(r.Context(), &user); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "An account with this email already exists")
		case errors.Is(err, auth.ErrUserNotFound):
			writeUnauthorized(w)
		default:
			s.logger.Error("updating profile", "error", err, "user_id", user.ID)
			writeServiceUnavailable(w)
		}
		return
	}

	s.recordAudit(r, ident.OrganizationID, user.ID, "update", "user", user.ID, nil)
	writeJSON(w, http.StatusOK, &user)
}

// issueSession creates a session for the user and sets the cookie. On
// failure it writes the error response and returns false.
func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, userID string) bool {
	ttl := time.Duration(s.secCfg.Session.TTLHours) * time.Hour
	token, _, err := s.sessions.Create(r.Context(), userID, ttl)
	if err != nil {
		s.logger.Error("creating session", "error", err, "user_id", userID)
		writeServiceUnavailable(w)
		return false
	}

	s.setSessionCookie(w, token, ttl)
	return true
}

// setSessionCookie writes the session cookie. HttpOnly always; Secure
// follows configuration so local development over plain HTTP still works.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.secCfg.Session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secCfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on the client.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.secCfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secCfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// recordAudit writes an audit trail entry. Best-effort: the operation it
// describes has already succeeded, so a failed write is logged, not
// surfaced to the client.
func (s *Server) recordAudit(r *http.Request, organizationID, userID, action, entityType, entityID string, details map[string]any) {
	if s.audit == nil || organizationID == "" {
		return
	}

	entry := &audit.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Details:    details,
	}
	if err := s.audit.Create(r.Context(), organizationID, entry); err != nil {
		s.logger.Warn("recording audit log",
			"error", err,
			"action", action,
			"entity_type", entityType,
		)
	}
}
