package observability

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for catalog sync runs.
type Metrics struct {
	Registry       *prometheus.Registry
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	PartsAdded     prometheus.Counter
	PartsUpdated   prometheus.Counter
	CategoryErrors *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	CatalogSize    prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsync_runs_total",
			Help: "Total update runs by outcome.",
		},
		[]string{"outcome"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partsync_run_duration_seconds",
			Help:    "Duration of a full update run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
	added := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partsync_parts_added_total",
			Help: "Parts appended to the catalog.",
		},
	)
	updated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partsync_parts_updated_total",
			Help: "Parts replaced in the catalog.",
		},
	)
	categoryErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsync_category_errors_total",
			Help: "Category fetch failures by type.",
		},
		[]string{"error_type"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partsync_fetch_duration_seconds",
			Help:    "Latency of one category fetch.",
			Buckets: prometheus.DefBuckets,
		},
	)
	catalogSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "partsync_catalog_parts",
			Help: "Number of parts in the persisted catalog.",
		},
	)

	registry.MustRegister(runs, runDuration, added, updated, categoryErrors, fetchDuration, catalogSize)

	return &Metrics{
		Registry:       registry,
		RunsTotal:      runs,
		RunDuration:    runDuration,
		PartsAdded:     added,
		PartsUpdated:   updated,
		CategoryErrors: categoryErrors,
		FetchDuration:  fetchDuration,
		CatalogSize:    catalogSize,
	}
}

// ObserveRun records the outcome of one update run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration, added, updated int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.PartsAdded.Add(float64(added))
	m.PartsUpdated.Add(float64(updated))
}

// ObserveFetch records a category fetch duration.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncCategoryError increments the category error counter for a type label.
func (m *Metrics) IncCategoryError(errorType string) {
	if m == nil {
		return
	}
	m.CategoryErrors.WithLabelValues(errorType).Inc()
}

// SetCatalogSize records the current catalog length.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogSize.Set(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Start serves /metrics on port in the background. Shut the returned server down on exit.
func Start(port string, m *Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}
