package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	modelsTrained *prometheus.CounterVec
	computeRuns   prometheus.Counter
	rowsScored    prometheus.Counter
	rowsSkipped   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		modelsTrained: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_models_trained_total",
			Help: "Weight models trained, by weighting method.",
		}, []string{"method"}),
		computeRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atlas_index_runs_total",
			Help: "Index computation runs completed.",
		}),
		rowsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atlas_rows_scored_total",
			Help: "Observation rows scored across all index runs.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atlas_rows_skipped_total",
			Help: "Observation rows skipped for data-quality reasons.",
		}),
	}

	prometheus.MustRegister(
		m.modelsTrained,
		m.computeRuns,
		m.rowsScored,
		m.rowsSkipped,
	)
	return m
}

func (m *Metrics) ModelTrained(method string) {
	if m == nil {
		return
	}
	m.modelsTrained.WithLabelValues(method).Inc()
}

func (m *Metrics) IndexComputed(scored, skipped int) {
	if m == nil {
		return
	}
	m.computeRuns.Inc()
	m.rowsScored.Add(float64(scored))
	m.rowsSkipped.Add(float64(skipped))
}
