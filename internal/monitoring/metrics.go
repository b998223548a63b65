// Package monitoring exposes prometheus collectors for the portal's record
// store and HTTP surface.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_store_operations_total",
			Help: "Record store operations per collection and outcome",
		},
		[]string{"collection", "operation", "status"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests per method, path pattern, and status code",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	wizardSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_wizard_submissions_total",
			Help: "Wizard exit actions per action and outcome",
		},
		[]string{"action", "outcome"},
	)
)

// RecordStoreOperation counts one store read or write.
func RecordStoreOperation(collection, operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOperations.WithLabelValues(collection, operation, status).Inc()
}

// RecordHTTPRequest counts one completed HTTP request and its latency.
func RecordHTTPRequest(method, path string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordWizardSubmission counts one wizard exit action.
func RecordWizardSubmission(action, outcome string) {
	wizardSubmissions.WithLabelValues(action, outcome).Inc()
}

// Handler returns the metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
