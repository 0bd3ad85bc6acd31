package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.IncRun("success")
	m.IncRun("success")
	m.IncRun("")
	m.IncFactAppended()
	m.AddStatusRows("updated", 3)
	m.AddStatusRows("unchanged", 0)
	m.IncGRNUpdated()
	m.ObserveStage("materialize", 10*time.Millisecond)

	if got := testutil.ToFloat64(m.runs.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 successful runs, got %f", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty outcome to map to unknown, got %f", got)
	}
	if got := testutil.ToFloat64(m.facts); got != 1 {
		t.Fatalf("expected 1 fact, got %f", got)
	}
	if got := testutil.ToFloat64(m.statuses.WithLabelValues("updated")); got != 3 {
		t.Fatalf("expected 3 updated rows, got %f", got)
	}
	if got := testutil.ToFloat64(m.grnUpdates); got != 1 {
		t.Fatalf("expected 1 grn update, got %f", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "pallet_pipeline_stage_duration_seconds", "stage", "materialize"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilPipelineMetricsAreNoops(t *testing.T) {
	var m *PipelineMetrics
	m.IncRun("success")
	m.ObserveStage("ledger", time.Second)
	m.IncFactAppended()
	m.AddStatusRows("updated", 1)
	m.IncGRNUpdated()

	unregistered := NewPipelineMetrics(nil)
	unregistered.IncRun("success")
}
