// Package telemetry provides application-level observability for the registry.
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<MODVAULT_TELEMETRY_PROMETHEUS_PORT>/metrics
//
// The endpoint is not part of the Gin router, which keeps the scrape path off
// the public ingress and outside the rate-limiting middleware.
//
// HTTP metrics use c.FullPath() (route template such as
// /api/v1/projects/:project/versions) rather than the raw request URL to
// prevent unbounded label cardinality from user-supplied path segments such as
// slugs or version numbers.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route template, and
	// status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes HTTP request latencies by method and route
	// template.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// FileDownloadsTotal counts served version-file downloads by project slug.
	FileDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_downloads_total",
			Help: "Total number of version file downloads served, by project slug.",
		},
		[]string{"project"},
	)

	// BlobOperationsTotal counts blob store operations by bucket, operation,
	// and outcome. The deletion path increments this with op="delete" only
	// when the reference count permitted a physical delete.
	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blob_operations_total",
			Help: "Total number of blob store operations, by bucket, operation, and outcome.",
		},
		[]string{"bucket", "op", "outcome"},
	)

	// SearchSyncTotal counts search index synchronization calls by kind
	// (upsert, delete, reindex) and outcome. A rising failure rate here means
	// the index is drifting from the relational store.
	SearchSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_sync_total",
			Help: "Total number of search index synchronization operations, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total number of requests rejected with 429 by the rate limiter.",
		},
	)

	// DBConnectionsInUse gauges the connection pool, polled every 30s.
	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use.",
		},
	)
)

// PollDBStats periodically updates DBConnectionsInUse from the pool. It runs
// until the process exits; call it in a goroutine from main.
func PollDBStats(db *sql.DB) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := db.Stats()
		DBConnectionsInUse.Set(float64(stats.InUse))
		slog.Debug("db pool stats", "in_use", stats.InUse, "idle", stats.Idle)
	}
}
