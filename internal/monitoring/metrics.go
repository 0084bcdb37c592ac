package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	PagesTotal   *prometheus.CounterVec
	OffersTotal  *prometheus.CounterVec
	CleaningRuns *prometheus.CounterVec
	RowsLoaded   *prometheus.CounterVec
	RunDuration  prometheus.Histogram

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the pipeline metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gpumon_listing_pages_total",
			Help: "Listing pages fetched, by outcome",
		}, []string{"outcome"}),
		OffersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gpumon_offers_total",
			Help: "Offer pages fetched, by outcome",
		}, []string{"outcome"}),
		CleaningRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gpumon_cleaning_runs_total",
			Help: "Cleaning attempts, by result", // cleaned, shape_failure, internal_error
		}, []string{"result"}),
		RowsLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gpumon_rows_loaded_total",
			Help: "Rows persisted, by destination",
		}, []string{"destination"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gpumon_run_duration_seconds",
			Help:    "Duration of full pipeline runs",
			Buckets: []float64{60, 300, 600, 1200, 1800, 3600},
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) IncPage(outcome string) {
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncOffer(outcome string) {
	m.OffersTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCleaning(result string) {
	m.CleaningRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) AddRows(destination string, n int) {
	m.RowsLoaded.WithLabelValues(destination).Add(float64(n))
}

// ObserveRequest records one served ops API request.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}
