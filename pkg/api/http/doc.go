// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Task submission (POST /api/v1/tasks)
//   - Workflow history, per-worker metrics and validation statistics
//   - Standalone content validation and research cache maintenance
//   - Liveness (/health) and full health checks (/api/v1/health)
//   - Prometheus metrics (/metrics)
package http
