// Package metrics exposes the Prometheus registry used by the catalog client.
// Metrics are declared with promauto next to the code that records them
// (transport, catalog, ratelimit) to keep packages independent; this package
// documents them and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics registered through Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler serving every metric in Gatherer. Scrapes
// are themselves counted on Registry.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}),
	)
}

// Metrics Documentation
//
// Request Metrics (pkg/transport):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by route template and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration including retries
//   - catalog_errors_total{class} (Counter): Failed attempts by class (client, server, rate_limit, network)
//   - catalog_retries_total{error_class} (Counter): Retry attempts scheduled by the retry policy
//
// Client Metrics (pkg/catalog):
//   - catalog_batch_chunks_total (Counter): Batch chunks dispatched by Albums
//   - catalog_operation_errors_total{operation, kind} (Counter): Typed errors returned to callers
//   - catalog_credential_refreshes_total{result} (Counter): Credential refreshes (success, failure)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_hits_total (Counter): 429 responses observed
//   - catalog_rate_limit_blocks_total (Counter): Requests refused during a cooldown
//   - catalog_rate_limit_retry_after_seconds (Gauge): Last Retry-After received
//
// Example Prometheus Queries:
//
//   # Not-found ratio of single lookups
//   sum(rate(catalog_operation_errors_total{operation="album",kind="not_found"}[5m])) /
//   sum(rate(catalog_requests_total{endpoint="/albums/{id}"}[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
//
//   # Average chunks per batch call
//   rate(catalog_batch_chunks_total[5m])
//
//   # Cooldown pressure
//   rate(catalog_rate_limit_blocks_total[5m]) > 0
