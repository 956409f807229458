// Package httpserver provides the admin HTTP server for pulsekv.
//
// Endpoints:
//
//   - GET /health: status, uptime and keyspace/registry sizes as JSON
//   - GET /metrics: Prometheus exposition
//   - GET /subscribe/{channel}: WebSocket subscription; every message
//     published to channel arrives as one text frame
//
// Requests pass through the RequestID and Recover middleware. Audit logging
// is optional.
package httpserver
