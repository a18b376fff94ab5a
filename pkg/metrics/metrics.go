// Package metrics exposes the Prometheus registry shared by the proxy.
// Metrics are defined with promauto in the package that records them
// (store, cache, upstream, resolver, reconcile, server); this package only
// serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every promauto metric of the proxy uses.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics registered in Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Store (pkg/store):
//   - overfast_store_errors_total{operation} (Counter): failed store operations
//
// Cache (pkg/cache):
//   - overfast_cache_hits_total{cache, layer} (Counter): hits by tier (source, response) and layer (memory, store)
//   - overfast_cache_misses_total{cache} (Counter): misses by tier
//   - overfast_cache_writes_total{cache} (Counter): writes by tier
//   - overfast_cache_errors_total{cache, operation} (Counter): failed cache operations
//
// Upstream (pkg/upstream):
//   - overfast_upstream_requests_total{status} (Counter): page fetches by HTTP status
//   - overfast_upstream_request_duration_seconds{status} (Histogram): page fetch duration
//   - overfast_upstream_errors_total{class} (Counter): failed fetches by class
//
// Resolution (pkg/resolver):
//   - overfast_resolve_total{kind, outcome} (Counter): requests by kind and outcome
//   - overfast_resolve_duration_seconds{kind} (Histogram): resolution duration
//   - overfast_source_refresh_total{source, result} (Counter): source fetches (ok, store_error or an error class)
//   - overfast_source_stale_total{source, reason} (Counter): cached records rejected (expired, integrity, invalid_entry)
//
// Refresh sweep (pkg/reconcile):
//   - overfast_reconcile_sweeps_total{result} (Counter): sweeps by result
//   - overfast_reconcile_sweep_duration_seconds (Histogram): sweep duration
//   - overfast_reconcile_candidates_total{source, result} (Counter): refreshed or failed candidates
//
// HTTP (internal/server):
//   - overfast_http_requests_total{route, status} (Counter): API requests
//   - overfast_http_request_duration_seconds{route} (Histogram): API request duration
//
// Example Prometheus Queries:
//
//   # Response cache hit rate
//   sum(rate(overfast_cache_hits_total{cache="response"}[5m])) /
//   (sum(rate(overfast_cache_hits_total{cache="response"}[5m])) + sum(rate(overfast_cache_misses_total{cache="response"}[5m])))
//
//   # Parsers needing an update
//   sum by (source) (rate(overfast_source_refresh_total{result="parsing"}[1h]))
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(overfast_upstream_request_duration_seconds_bucket[5m]))
