package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the forecasting core's collectors. A nil *Registry is valid
// and records nothing.
type Registry struct {
	reg              *prometheus.Registry
	ForecastsCreated *prometheus.CounterVec
	ForecastFailures *prometheus.CounterVec
	ForecastLatency  prometheus.Histogram
	ImportRows       *prometheus.CounterVec
	SalesRecorded    prometheus.Counter
	SalesSince       prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	created := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "forecast_generated_total"}, []string{"method"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "forecast_failures_total"}, []string{"kind"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "forecast_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sales_import_rows_total"}, []string{"result"})
	recorded := prometheus.NewCounter(prometheus.CounterOpts{Name: "sales_recorded_total"})
	since := prometheus.NewGauge(prometheus.GaugeOpts{Name: "sales_since_last_query"})

	r.MustRegister(created, failures, latency, importRows, recorded, since)
	return &Registry{
		reg:              r,
		ForecastsCreated: created,
		ForecastFailures: failures,
		ForecastLatency:  latency,
		ImportRows:       importRows,
		SalesRecorded:    recorded,
		SalesSince:       since,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// ObserveForecast records one forecast job outcome. kind is empty on success.
func (r *Registry) ObserveForecast(method, kind string, took time.Duration) {
	if r == nil {
		return
	}
	r.ForecastLatency.Observe(took.Seconds())
	if kind != "" {
		r.ForecastFailures.WithLabelValues(kind).Inc()
		return
	}
	r.ForecastsCreated.WithLabelValues(method).Inc()
}

// ObserveImport records the row counts of one CSV import
func (r *Registry) ObserveImport(imported, skipped int) {
	if r == nil {
		return
	}
	r.ImportRows.WithLabelValues("imported").Add(float64(imported))
	r.ImportRows.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveSale counts a manually recorded sale
func (r *Registry) ObserveSale() {
	if r == nil {
		return
	}
	r.SalesRecorded.Inc()
}

// ObserveSalesSince publishes the latest count_since result
func (r *Registry) ObserveSalesSince(n int) {
	if r == nil {
		return
	}
	r.SalesSince.Set(float64(n))
}
