package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
)

const namespace = "salesanalytics"

// Metrics are the pipeline counters exposed on /metrics. Runtime and process collectors
// stay on the default registry, which /metrics serves alongside this one.
type Metrics struct {
	Registry *prometheus.Registry

	rowsAccepted *prometheus.CounterVec
	rowsRejected *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRevenue  *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		rowsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_accepted_total",
			Help:      "Rows that passed validation, by source.",
		}, []string{"source"}),
		rowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Rows rejected by validation, by source.",
		}, []string{"source"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Per-date runs, by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a per-date run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		lastRevenue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_revenue",
			Help:      "Total revenue of the most recently processed run, by date.",
		}, []string{"date"}),
	}
	reg.MustRegister(
		m.rowsAccepted,
		m.rowsRejected,
		m.runs,
		m.runDuration,
		m.lastRevenue,
	)
	return m
}

func (m *Metrics) ObserveRun(result *domain.RunResult, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.runDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.runs.WithLabelValues(Outcome(err)).Inc()
		return
	}
	m.runs.WithLabelValues("success").Inc()
	if result == nil {
		return
	}
	for source, stats := range result.Sources {
		m.rowsAccepted.WithLabelValues(string(source)).Add(float64(stats.Accepted))
		m.rowsRejected.WithLabelValues(string(source)).Add(float64(stats.Rejected))
	}
	if !result.DryRun {
		m.lastRevenue.WithLabelValues(result.Date).Set(result.Summary.TotalRevenue.Float64())
	}
}

// Outcome labels a failed run.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsSchemaError(err):
		return "schema_error"
	case errors.Is(err, loader.ErrBatchNotFound):
		return "batch_not_found"
	case errors.Is(err, domain.ErrRunInProgress):
		return "locked"
	default:
		return "error"
	}
}
