// Package metrics provides the Prometheus registry and HTTP handler for the
// Ninox connector. All metrics are defined in their respective packages
// (client, cache, ratelimit, pagination, trigger, connector) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the connector.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer exposes the metrics registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - ninox_requests_total{operation, status} (Counter): Requests by operation and HTTP status
//   - ninox_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - ninox_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - ninox_rate_limit_hits_total (Counter): 429 responses recorded
//   - ninox_rate_limit_wait_seconds (Histogram): Time spent waiting out a Retry-After window
//   - ninox_rate_limit_blocks_total (Counter): Requests refused because the wait exceeded the maximum
//
// Cache Metrics (pkg/cache):
//   - ninox_cache_hits_total (Counter): Schema cache hits
//   - ninox_cache_misses_total (Counter): Schema cache misses
//   - ninox_cache_size_bytes (Counter): Bytes written to the cache
//   - ninox_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pagination Metrics (pkg/pagination):
//   - ninox_pagination_pages_total (Counter): Pages fetched
//   - ninox_pagination_truncations_total{reason} (Counter): Listings stopped early by a repeated page or the page ceiling
//
// Polling Metrics (pkg/trigger):
//   - ninox_poll_records_total{mode} (Counter): Records emitted by polls
//   - ninox_poll_watermark{table} (Gauge): Last stored sequence watermark
//   - ninox_poll_errors_total{mode} (Counter): Failed polls
//
// Action Metrics (pkg/connector):
//   - ninox_actions_total{action, outcome} (Counter): Action executions by outcome
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(ninox_cache_hits_total[5m])) /
//   (sum(rate(ninox_cache_hits_total[5m])) + sum(rate(ninox_cache_misses_total[5m])))
//
//   # Truncated Listings
//   sum by (reason) (rate(ninox_pagination_truncations_total[1h]))
//
//   # Request Error Rate
//   rate(ninox_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ninox_request_duration_seconds_bucket[5m]))
//
//   # Stalled Trigger (watermark not advancing)
//   changes(ninox_poll_watermark[1h]) == 0
