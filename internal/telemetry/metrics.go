// Package telemetry holds the process-wide observability setup: the slog default logger and
// the Prometheus collectors scraped from the side-channel metrics server.
//
// All collectors register against the default Prometheus registry through promauto and are
// served by main on
//
//	GET http://<host>:<OPEN_CEC_API_TELEMETRY_METRICS_PORT>/metrics
//
// which is not part of the gin router and is never behind the access gate.
//
// HTTP metrics are labelled with c.FullPath() (e.g. /admin/listings/:id) rather than the raw
// URL so that ids in the path do not create unbounded label cardinality.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/safego"
)

// HTTP metrics, labelled by method, route template and status code.
//
// Example PromQL:
//   - Error rate: sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m]))
//   - p99 by route: histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// Repository outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeInvalid    = "invalid"
	OutcomeConstraint = "constraint"
	OutcomeError      = "error"
)

// RepositoryOperationsTotal counts generic repository calls by entity kind, operation
// (get, list, create, update, delete) and outcome (see the Outcome constants).
//
// Example PromQL:
//   - Conflicts per entity: sum by (entity) (rate(repository_operations_total{outcome="constraint"}[1h]))
var RepositoryOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "repository_operations_total",
		Help: "Total number of repository operations, by entity, operation, and outcome.",
	},
	[]string{"entity", "operation", "outcome"},
)

// AccessGateChecksTotal counts credential checks by result ("validated", "rejected", "error").
// A jump in rejected checks usually means a client is using a revoked key.
var AccessGateChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_gate_checks_total",
		Help: "Total number of access gate credential checks, by result.",
	},
	[]string{"result"},
)

// ListingGraphQueries observes how many SQL statements one listing graph load issued. The
// loader is bounded, so anything above 5 indicates a regression.
var ListingGraphQueries = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "listing_graph_queries",
		Help:    "Number of SQL statements issued per listing graph load.",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8},
	},
)

// CertificateDocumentBytes observes the size of archived certificate documents.
var CertificateDocumentBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "certificate_document_bytes",
		Help:    "Size of certificate documents stored in the archive.",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 6),
	},
)

// Database pool gauges, sampled by StartDBStatsCollector.
//
// Example PromQL:
//   - Pool utilisation: db_open_connections / <OPEN_CEC_API_DATABASE_MAX_CONNECTIONS>
var (
	DBOpenConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_open_connections",
			Help: "Current number of open database connections in the pool.",
		},
	)

	DBInUseConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_in_use_connections",
			Help: "Current number of database connections checked out of the pool.",
		},
	)

	DBWaitCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_wait_count",
			Help: "Cumulative number of connection requests that had to wait for a free connection.",
		},
	)
)

// StartDBStatsCollector samples the pool every interval until ctx is cancelled or the
// database stops answering pings.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	safego.Go("db-stats-collector", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := db.PingContext(ctx); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			RecordDBStats(db.Stats())
		}
	})
}

// RecordDBStats copies a pool snapshot into the gauges.
func RecordDBStats(stats sql.DBStats) {
	DBOpenConnections.Set(float64(stats.OpenConnections))
	DBInUseConnections.Set(float64(stats.InUse))
	DBWaitCount.Set(float64(stats.WaitCount))
}
