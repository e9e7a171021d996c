// Package metrics documents the Prometheus metrics exposed by the scan tool.
// All metrics are defined in their respective packages (client, throttle,
// scan) to maintain modularity and avoid circular dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the tool.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - bdr_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - bdr_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - bdr_errors_total{class} (Counter): Errors by class (client, server, network)
//
// Pacing Metrics (pkg/throttle):
//   - bdr_throttle_waits_total (Counter): Fixed-delay waits performed
//   - bdr_throttle_wait_seconds (Histogram): Wait durations
//
// Scan Metrics (pkg/scan):
//   - bdr_collections_checked_total (Counter): Collections whose item count was examined
//   - bdr_collections_matched_total (Counter): Collections within the configured bounds
//   - bdr_scan_duration_seconds (Histogram): Complete scan durations
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(bdr_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(bdr_request_duration_seconds_bucket[5m]))
//
//   # Match Rate
//   rate(bdr_collections_matched_total[15m]) / rate(bdr_collections_checked_total[15m])
