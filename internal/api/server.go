package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/securewatch/securewatch-core/internal/asset"
	"github.com/securewatch/securewatch-core/internal/audit"
	"github.com/securewatch/securewatch-core/internal/auth"
	"github.com/securewatch/securewatch-core/internal/compliance"
	"github.com/securewatch/securewatch-core/internal/dashboard"
	"github.com/securewatch/securewatch-core/internal/infrastructure/config"
	"github.com/securewatch/securewatch-core/internal/infrastructure/influxdb"
	"github.com/securewatch/securewatch-core/internal/infrastructure/logging"
	"github.com/securewatch/securewatch-core/internal/report"
	"github.com/securewatch/securewatch-core/internal/scan"
	"github.com/securewatch/securewatch-core/internal/scanner"
	"github.com/securewatch/securewatch-core/internal/tenant"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Users      auth.UserRepository
	Sessions   auth.SessionRepository
	Orgs       tenant.OrganizationRepository
	Assets     asset.Repository
	Jobs       scan.JobRepository
	Vulns      scan.VulnerabilityRepository
	IAM        scan.IAMRepository
	Compliance compliance.Repository
	Reports    report.Repository
	Audit      audit.Repository
	Dashboard  *dashboard.Service
	Scanner    *scanner.Service  // optional: scan/report dispatch to workers
	Influx     *influxdb.Client  // optional: time-series writes
	ExternalHub *Hub             // if set, the server uses this hub instead of creating its own
	Version    string
}

// Server is the HTTP API server for SecureWatch Core.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	users      auth.UserRepository
	sessions   auth.SessionRepository
	orgs       tenant.OrganizationRepository
	assets     asset.Repository
	jobs       scan.JobRepository
	vulns      scan.VulnerabilityRepository
	iam        scan.IAMRepository
	compliance compliance.Repository
	reports    report.Repository
	audit      audit.Repository
	dashboard  *dashboard.Service
	scanner    *scanner.Service
	influx     *influxdb.Client
	version    string

	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called. Scanner and Influx are
// optional: without them scans stay pending and no metrics are recorded, but
// every read path keeps working.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session repository is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		users:      deps.Users,
		sessions:   deps.Sessions,
		orgs:       deps.Orgs,
		assets:     deps.Assets,
		jobs:       deps.Jobs,
		vulns:      deps.Vulns,
		iam:        deps.IAM,
		compliance: deps.Compliance,
		reports:    deps.Reports,
		audit:      deps.Audit,
		dashboard:  deps.Dashboard,
		scanner:    deps.Scanner,
		influx:     deps.Influx,
		version:    deps.Version,
	}

	// Use an externally-provided hub if available (needed when the scanner
	// consumer also broadcasts through it).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and the expired-session
// sweeper, and launches the HTTP listener in a background goroutine. The
// server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	go s.sweepSessionsLoop(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// sweepSessionsLoop periodically deletes expired session rows so the
// sessions table does not grow without bound.
func (s *Server) sweepSessionsLoop(ctx context.Context) {
	interval := time.Duration(s.secCfg.Session.SweepInterval) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.sessions.DeleteExpired(ctx)
			if err != nil {
				s.logger.Warn("expired session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Debug("swept expired sessions", "removed", removed)
			}
		}
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, session sweeper)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
