// SecureWatch Core - Security Audit Dashboard
//
// This is the main entry point for the SecureWatch Core application: a
// multi-tenant security audit platform covering asset inventory, scan
// orchestration, vulnerability triage, IAM reviews, compliance tracking
// and report generation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/securewatch/securewatch-core/migrations"

	"github.com/securewatch/securewatch-core/internal/api"
	"github.com/securewatch/securewatch-core/internal/asset"
	"github.com/securewatch/securewatch-core/internal/audit"
	"github.com/securewatch/securewatch-core/internal/auth"
	"github.com/securewatch/securewatch-core/internal/compliance"
	"github.com/securewatch/securewatch-core/internal/dashboard"
	"github.com/securewatch/securewatch-core/internal/infrastructure/config"
	"github.com/securewatch/securewatch-core/internal/infrastructure/database"
	"github.com/securewatch/securewatch-core/internal/infrastructure/influxdb"
	"github.com/securewatch/securewatch-core/internal/infrastructure/logging"
	"github.com/securewatch/securewatch-core/internal/infrastructure/mqtt"
	"github.com/securewatch/securewatch-core/internal/report"
	"github.com/securewatch/securewatch-core/internal/scan"
	"github.com/securewatch/securewatch-core/internal/scanner"
	"github.com/securewatch/securewatch-core/internal/tenant"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting SecureWatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	userRepo := auth.NewUserRepository(db.DB)
	sessionRepo := auth.NewSessionRepository(db.DB)
	orgRepo := tenant.NewOrganizationRepository(db.DB)
	assetRepo := asset.NewRepository(db.DB)
	jobRepo := scan.NewJobRepository(db.DB)
	vulnRepo := scan.NewVulnerabilityRepository(db.DB)
	iamRepo := scan.NewIAMRepository(db.DB)
	complianceRepo := compliance.NewRepository(db.DB)
	reportRepo := report.NewRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	dashboardSvc := dashboard.NewService(db.DB, complianceRepo)

	// Connect to MQTT broker (optional). Without it, scans and reports
	// are created but stay pending until a worker bus is available.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled, scan dispatch inactive")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub is created here rather than inside the API server
	// because the scanner consumer broadcasts through it too.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Scanner service: dispatches jobs to workers over MQTT and applies
	// the status updates they publish back.
	scannerDeps := scanner.Deps{
		Jobs:    jobRepo,
		Reports: reportRepo,
		Events:  hub,
		Logger:  log,
		QoS:     byte(cfg.MQTT.QoS),
	}
	if mqttClient != nil {
		scannerDeps.Bus = mqttClient
	}
	if influxClient != nil {
		scannerDeps.Metrics = influxClient
	}
	scannerSvc := scanner.New(scannerDeps)
	if err := scannerSvc.Start(); err != nil {
		return fmt.Errorf("starting scanner consumer: %w", err)
	}

	// API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Users:       userRepo,
		Sessions:    sessionRepo,
		Orgs:        orgRepo,
		Assets:      assetRepo,
		Jobs:        jobRepo,
		Vulns:       vulnRepo,
		IAM:         iamRepo,
		Compliance:  complianceRepo,
		Reports:     reportRepo,
		Audit:       auditRepo,
		Dashboard:   dashboardSvc,
		Scanner:     scannerSvc,
		Influx:      influxClient,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("SecureWatch Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SECUREWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SECUREWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB are skipped when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
