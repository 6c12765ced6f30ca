// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Run submission and results
//   - Live pool state of active runs
//   - Health checks
//   - Prometheus metrics
package http
