package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Account creation and login happen before a session exists.
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Logout is idempotent: a missing or stale cookie still gets a 200,
		// so it stays outside the session-auth group.
		r.Post("/auth/logout", s.handleLogout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.sessionAuthMiddleware)

			r.Get("/auth/user", s.handleCurrentUser)
			r.Put("/auth/profile", s.handleUpdateProfile)

			r.Route("/assets", func(r chi.Router) {
				r.Get("/", s.handleListAssets)
				r.Post("/", s.handleCreateAsset)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetAsset)
					r.Put("/", s.handleUpdateAsset)
					r.Delete("/", s.handleDeleteAsset)
				})
			})

			r.Route("/scans", func(r chi.Router) {
				r.Get("/", s.handleListScans)
				r.Post("/", s.handleCreateScan)
				r.Get("/{id}", s.handleGetScan)
			})

			r.Route("/vulnerabilities", func(r chi.Router) {
				r.Get("/", s.handleListVulnerabilities)
				r.Get("/{id}", s.handleGetVulnerability)
				r.Put("/{id}", s.handleUpdateVulnerability)
			})

			r.Route("/iam-records", func(r chi.Router) {
				r.Get("/", s.handleListIAMRecords)
				r.Post("/", s.handleCreateIAMRecord)
			})

			r.Route("/compliance", func(r chi.Router) {
				r.Get("/", s.handleListCompliance)
				r.Post("/", s.handleCreateCompliance)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", s.handleListReports)
				r.Post("/", s.handleCreateReport)
				r.Get("/{id}", s.handleGetReport)
			})

			r.Route("/organization", func(r chi.Router) {
				r.Get("/", s.handleGetOrganization)
				r.Put("/", s.handleUpdateOrganization)
			})

			r.Get("/dashboard/metrics", s.handleDashboardMetrics)
			r.Get("/audit-logs", s.handleListAuditLogs)

			// WebSocket event feed (auth via the same session cookie)
			r.Get("/events/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
