// Package metric provides Prometheus metrics for pulsekv.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry, instruments and the /metrics handler
//   - collector.go: a custom collector sampling keyspace and registry sizes
//
// Metrics include:
//
//   - Command counters and latency histograms
//   - Connection gauges
//   - Expired key counters (lazy and swept)
//   - Publish and delivery counters
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
