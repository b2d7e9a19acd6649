package metrics

import (
	"errors"
	"time"

	"valutatrade/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide counters for the rate subsystem. A nil
// *Metrics is valid and records nothing, which keeps tests free of the
// global prometheus registry.
type Metrics struct {
	UpdateRunsTotal     *prometheus.CounterVec
	UpdateRunDuration   prometheus.Histogram
	RatesFetchedTotal   *prometheus.CounterVec
	ProviderErrorsTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		UpdateRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_update_runs_total",
				Help: "Total number of rate update runs",
			},
			[]string{"status"},
		),
		UpdateRunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rate_update_run_duration_seconds",
				Help:    "Duration of rate update runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RatesFetchedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rates_fetched_total",
				Help: "Total number of rates fetched per source",
			},
			[]string{"source"},
		),
		ProviderErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_errors_total",
				Help: "Total number of provider fetch errors per source and kind",
			},
			[]string{"source", "kind"},
		),
	}
}

func (m *Metrics) ObserveRun(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.UpdateRunsTotal.WithLabelValues(status).Inc()
	m.UpdateRunDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRatesFetched(source string, count int) {
	if m == nil {
		return
	}
	m.RatesFetchedTotal.WithLabelValues(source).Add(float64(count))
}

func (m *Metrics) ObserveProviderError(source string, err error) {
	if m == nil {
		return
	}
	kind := "unknown"
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		kind = string(perr.Kind)
	}
	m.ProviderErrorsTotal.WithLabelValues(source, kind).Inc()
}
