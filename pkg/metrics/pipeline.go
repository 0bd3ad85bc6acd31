package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records reconciliation run outcomes per stage.
type PipelineMetrics struct {
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	facts         prometheus.Counter
	statuses      *prometheus.CounterVec
	grnUpdates    prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pallet_pipeline_runs_total",
		Help: "Pipeline runs by outcome.",
	}, []string{"outcome"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pallet_pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	facts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pallet_ledger_facts_appended_total",
		Help: "Built facts appended to the transaction ledger.",
	})
	statuses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pallet_status_rows_total",
		Help: "Pallet status rows processed by result.",
	}, []string{"result"})
	grnUpdates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pallet_grn_status_updates_total",
		Help: "GRN rows moved to the unloading status.",
	})
	reg.MustRegister(runs, stageDuration, facts, statuses, grnUpdates)
	return &PipelineMetrics{
		runs:          runs,
		stageDuration: stageDuration,
		facts:         facts,
		statuses:      statuses,
		grnUpdates:    grnUpdates,
	}
}

// IncRun counts a finished run under the given outcome label.
func (m *PipelineMetrics) IncRun(outcome string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveStage records how long a stage took.
func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncFactAppended counts one appended Built fact.
func (m *PipelineMetrics) IncFactAppended() {
	if m == nil || m.facts == nil {
		return
	}
	m.facts.Inc()
}

// AddStatusRows counts status rows under result (updated, unchanged, flagged, invalid).
func (m *PipelineMetrics) AddStatusRows(result string, n int) {
	if m == nil || m.statuses == nil || n <= 0 {
		return
	}
	m.statuses.WithLabelValues(normalizeLabel(result)).Add(float64(n))
}

// IncGRNUpdated counts one GRN status transition.
func (m *PipelineMetrics) IncGRNUpdated() {
	if m == nil || m.grnUpdates == nil {
		return
	}
	m.grnUpdates.Inc()
}
