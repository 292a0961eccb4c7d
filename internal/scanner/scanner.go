// Package scanner bridges the REST layer and the external scan engines and
// report generators over MQTT. The core publishes start/generate requests;
// workers stream status updates back, which are applied through the
// tenant-scoped repositories and fanned out to live dashboard clients.
//
// When the broker is disabled in config the service runs with a nil bus:
// dispatch becomes a no-op and created jobs simply stay pending.
package scanner

import (
	"github.com/securewatch/securewatch-core/internal/infrastructure/logging"
	"github.com/securewatch/securewatch-core/internal/infrastructure/mqtt"
	"github.com/securewatch/securewatch-core/internal/report"
	"github.com/securewatch/securewatch-core/internal/scan"
)

// Bus is the slice of the MQTT client the scanner uses.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Broadcaster fans a tenant-scoped event out to connected dashboard clients.
type Broadcaster interface {
	Broadcast(organizationID, eventType string, payload any)
}

// MetricsRecorder records scan lifecycle points in the time-series store.
type MetricsRecorder interface {
	WriteScanProgress(organizationID, jobID, status string, progress int)
}

// Deps holds the service's dependencies. Bus, Events and Metrics are
// optional; a nil Bus disables dispatch entirely.
type Deps struct {
	Bus     Bus
	Jobs    scan.JobRepository
	Reports report.Repository
	Events  Broadcaster
	Metrics MetricsRecorder
	Logger  *logging.Logger
	QoS     byte
}

// Service dispatches scan and report jobs to workers and applies the
// status updates they report.
type Service struct {
	bus     Bus
	jobs    scan.JobRepository
	reports report.Repository
	events  Broadcaster
	metrics MetricsRecorder
	logger  *logging.Logger
	qos     byte
	topics  mqtt.Topics
}

// New creates the scanner service.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Service{
		bus:     deps.Bus,
		jobs:    deps.Jobs,
		reports: deps.Reports,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  logger,
		qos:     deps.QoS,
	}
}
