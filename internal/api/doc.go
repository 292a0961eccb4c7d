// Package api implements the HTTP REST API and WebSocket server for
// SecureWatch Core.
//
// This package provides:
//   - REST endpoints for assets, scans, vulnerabilities, IAM records,
//     compliance scores, reports, audit logs and dashboard metrics
//   - Cookie-based opaque session authentication with a fail-closed
//     identity resolver
//   - WebSocket hub broadcasting tenant-scoped scan/report events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Multi-tenancy
//
// Every authenticated request carries an Identity resolved from the
// session cookie; the organization id on that identity scopes every
// repository call. Client-supplied organization ids are ignored, and an
// id belonging to another tenant is indistinguishable from a missing one
// (404). Role checks only ever run after tenant scoping, so a forbidden
// response never leaks cross-tenant existence.
//
// # Graceful Degradation
//
// The server operates without MQTT and InfluxDB — scan and report rows
// are still created, they just stay pending/generating until a worker
// bus is available, and no time-series points are written.
package api
