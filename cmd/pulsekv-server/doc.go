// Package main provides the entry point for pulsekv-server.
//
// The server keeps string keys with optional expiry in memory and fans
// published messages out to channel subscribers. It exposes:
//
//   - A RESP listener for GET, SET, DEL, EXPIRE, PUBLISH and SUBSCRIBE
//   - An optional admin HTTP listener with /health, /metrics and
//     WebSocket subscriptions under /subscribe/{channel}
//
// Usage:
//
//	pulsekv-server [flags]
//	pulsekv-server --config /etc/pulsekv/config.yaml
//	pulsekv-server --addr :6380 --http-addr :8080 --log-level debug
//
// Configuration is layered: defaults, the YAML file, PULSEKV_* environment
// variables, then flags. Changing log.level in the file takes effect
// without a restart.
package main
