package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the entitlement engine
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Entitlement metrics
	ResolutionsTotal     *prometheus.CounterVec
	ResolutionDuration   prometheus.Histogram
	GrantsTotal          *prometheus.CounterVec
	DependencyFailures   prometheus.Counter
	BulkItemsTotal       *prometheus.CounterVec
	TemplateAppliesTotal *prometheus.CounterVec

	// Provisioning metrics
	ProvisioningChangesTotal *prometheus.CounterVec

	// Audit metrics
	AuditRecordsTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backoffice_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_entitlement_resolutions_total",
				Help: "Total number of effective permission resolutions",
			},
			[]string{"status"},
		),
		ResolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backoffice_entitlement_resolution_duration_seconds",
				Help:    "Effective permission resolution duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		GrantsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_grants_total",
				Help: "Total number of grant/revoke operations",
			},
			[]string{"operation", "status"},
		),
		DependencyFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backoffice_grant_dependency_failures_total",
				Help: "Grants rejected because prerequisites were missing",
			},
		),
		BulkItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_bulk_grant_items_total",
				Help: "Per-item outcomes of bulk grant operations",
			},
			[]string{"status"},
		),
		TemplateAppliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_template_applies_total",
				Help: "Template application operations",
			},
			[]string{"status"},
		),
		ProvisioningChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_provisioning_changes_total",
				Help: "Company module provisioning changes",
			},
			[]string{"status"},
		),
		AuditRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_audit_records_total",
				Help: "Audit records written",
			},
			[]string{"entity_type"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backoffice_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backoffice_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.GrantsTotal,
		m.DependencyFailures,
		m.BulkItemsTotal,
		m.TemplateAppliesTotal,
		m.ProvisioningChangesTotal,
		m.AuditRecordsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// CollectDBStats copies sql.DB pool stats into the gauges. Intended to be
// called periodically from the serving loop.
func (m *Metrics) CollectDBStats(db *sql.DB) {
	s := db.Stats()
	m.DBConnectionsActive.Set(float64(s.InUse))
	m.DBConnectionsIdle.Set(float64(s.Idle))
}

// RegisterMetricsEndpoint registers the /metrics endpoint on a mux
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
