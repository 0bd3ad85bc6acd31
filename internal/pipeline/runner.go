package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/palletflow/internal/grn"
	"github.com/angelmondragon/palletflow/internal/ledger"
	"github.com/angelmondragon/palletflow/internal/palletstatus"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/lock"
	"github.com/angelmondragon/palletflow/pkg/logger"
	"github.com/angelmondragon/palletflow/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	stageLedger      = "ledger"
	stageMaterialize = "materialize"
	stagePropagate   = "propagate"
	stageRebuild     = "rebuild"

	outcomeRecorded  = "recorded"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
	outcomeConflict  = "conflict"
)

// RunnerParams configure the pipeline runner.
type RunnerParams struct {
	Logger       *logger.Logger
	Writer       ledger.Service
	Materializer palletstatus.Service
	Propagator   grn.Service
	// Lock is optional; without it runs are not serialised.
	Lock    lock.Lock
	Metrics *metrics.PipelineMetrics
}

// Runner chains the ledger writer, the status materializer and the GRN
// propagator into one pass over the latest build record.
type Runner struct {
	logg         *logger.Logger
	writer       ledger.Service
	materializer palletstatus.Service
	propagator   grn.Service
	lock         lock.Lock
	metrics      *metrics.PipelineMetrics
	newRunID     func() string
}

// Report summarises one pipeline run.
type Report struct {
	RunID    string               `json:"run_id"`
	Ledger   ledger.Result        `json:"ledger"`
	Status   *palletstatus.Result `json:"status,omitempty"`
	GRN      *grn.Result          `json:"grn,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

// NewRunner builds a pipeline runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if params.Materializer == nil {
		return nil, fmt.Errorf("status materializer required")
	}
	if params.Propagator == nil {
		return nil, fmt.Errorf("grn propagator required")
	}
	return &Runner{
		logg:         params.Logger,
		writer:       params.Writer,
		materializer: params.Materializer,
		propagator:   params.Propagator,
		lock:         params.Lock,
		metrics:      params.Metrics,
		newRunID:     uuid.NewString,
	}, nil
}

// Run records the latest build as a Built fact, then materializes the pallet's
// status and propagates the delivery state to its GRN. A duplicate build stops
// after the ledger stage. Not-found results of the later stages are warnings;
// their other errors are aggregated and returned once every stage ran.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: r.newRunID()}
	ctx = r.logg.WithRunID(ctx, report.RunID)

	err := r.withLock(ctx, func(ctx context.Context) error {
		return r.run(ctx, &report)
	})
	if pferrors.IsCode(err, pferrors.CodeConflict) {
		r.metrics.IncRun(outcomeConflict)
	}
	return report, err
}

func (r *Runner) run(ctx context.Context, report *Report) error {
	start := time.Now()
	res, err := r.writer.RecordBuilt(ctx)
	r.metrics.ObserveStage(stageLedger, time.Since(start))
	if err != nil {
		r.logg.Error(ctx, "ledger stage failed", err)
		r.metrics.IncRun(outcomeFailed)
		return err
	}
	report.Ledger = res

	ctx = r.logg.WithPalletID(ctx, res.PalletID)
	ctx = r.logg.WithGRNID(ctx, res.GRNID)
	if res.Outcome == ledger.OutcomeDuplicate {
		r.logg.Info(ctx, "build already recorded; skipping")
		r.metrics.IncRun(outcomeDuplicate)
		return nil
	}
	r.metrics.IncFactAppended()
	r.logg.Info(ctx, "built fact recorded")

	var errs error
	status, err := r.materialize(ctx, res.PalletID)
	if err != nil {
		if !r.warn(ctx, report, err) {
			errs = multierr.Append(errs, err)
		}
	} else {
		report.Status = &status
	}

	prop, err := r.propagate(ctx, res.PalletID)
	if err != nil && !r.warn(ctx, report, err) {
		errs = multierr.Append(errs, err)
	}
	if prop.Outcome != "" {
		report.GRN = &prop
	}

	if errs != nil {
		r.logg.Error(ctx, "pipeline run finished with errors", errs)
		r.metrics.IncRun(outcomeFailed)
		return errs
	}
	r.logg.Info(ctx, "pipeline run complete")
	r.metrics.IncRun(outcomeRecorded)
	return nil
}

// MaterializePallet runs the status materializer for one pallet under the run lock.
func (r *Runner) MaterializePallet(ctx context.Context, palletID string) (palletstatus.Result, error) {
	var out palletstatus.Result
	err := r.withLock(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.materialize(r.logg.WithPalletID(ctx, palletID), palletID)
		return err
	})
	return out, err
}

// PropagatePallet runs the GRN propagator for one pallet under the run lock.
func (r *Runner) PropagatePallet(ctx context.Context, palletID string) (grn.Result, error) {
	var out grn.Result
	err := r.withLock(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.propagate(r.logg.WithPalletID(ctx, palletID), palletID)
		return err
	})
	return out, err
}

// Rebuild recomputes every status row from the full ledger and build source.
func (r *Runner) Rebuild(ctx context.Context) (palletstatus.RebuildCounts, error) {
	var counts palletstatus.RebuildCounts
	ctx = r.logg.WithRunID(ctx, r.newRunID())
	err := r.withLock(ctx, func(ctx context.Context) error {
		start := time.Now()
		var err error
		counts, err = r.materializer.MaterializeAll(ctx)
		r.metrics.ObserveStage(stageRebuild, time.Since(start))
		if err != nil {
			r.logg.Error(ctx, "status rebuild failed", err)
			return err
		}
		r.metrics.AddStatusRows("updated", counts.RowsWritten)
		r.metrics.AddStatusRows("flagged", counts.UnrecognizedActions)
		if counts.Invalid > 0 {
			r.metrics.AddStatusRows("invalid", counts.Invalid)
			r.logg.Warn(r.logg.WithField(ctx, "invalid", counts.Invalid), "pallets skipped over unreadable cells")
		}
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"ledger_applied": counts.LedgerApplied,
			"expiry_applied": counts.ExpiryApplied,
			"skipped":        counts.Skipped,
			"rows_written":   counts.RowsWritten,
		}), "status rebuild complete")
		return nil
	})
	return counts, err
}

func (r *Runner) materialize(ctx context.Context, palletID string) (palletstatus.Result, error) {
	start := time.Now()
	res, err := r.materializer.MaterializeOne(ctx, palletID)
	r.metrics.ObserveStage(stageMaterialize, time.Since(start))
	if err != nil {
		return res, err
	}
	if res.UnrecognizedAction {
		r.metrics.AddStatusRows("flagged", 1)
		r.logg.Warn(r.logg.WithField(ctx, "action", string(res.Action)), "unrecognized ledger action left occupancy unchanged")
	}
	if res.Written {
		r.metrics.AddStatusRows("updated", 1)
		r.logg.Info(ctx, "pallet status updated")
	} else {
		r.metrics.AddStatusRows("unchanged", 1)
		r.logg.Info(ctx, "pallet status unchanged")
	}
	return res, nil
}

func (r *Runner) propagate(ctx context.Context, palletID string) (grn.Result, error) {
	start := time.Now()
	res, err := r.propagator.Propagate(ctx, palletID)
	r.metrics.ObserveStage(stagePropagate, time.Since(start))
	if err != nil {
		return res, err
	}
	ctx = r.logg.WithGRNID(ctx, res.GRNID)
	switch {
	case res.Written:
		r.metrics.IncGRNUpdated()
		r.logg.Info(ctx, "grn status updated")
	case res.Outcome == grn.OutcomeNoOp:
		r.logg.Info(ctx, "delivery complete; grn left unchanged")
	default:
		r.logg.Info(ctx, "grn status already current")
	}
	return res, nil
}

// warn logs err as a warning when it is a not-found result and reports whether it did.
func (r *Runner) warn(ctx context.Context, report *Report, err error) bool {
	if !pferrors.IsCode(err, pferrors.CodeNotFound) {
		return false
	}
	r.logg.Warn(ctx, err.Error())
	report.Warnings = append(report.Warnings, err.Error())
	return true
}

func (r *Runner) withLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.lock == nil {
		return fn(ctx)
	}
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		return pferrors.Wrap(pferrors.CodeDependency, err, "acquire pipeline lock")
	}
	if !locked {
		r.logg.Info(ctx, "another pipeline run holds the lock")
		return pferrors.New(pferrors.CodeConflict, "another pipeline run is in progress")
	}
	defer func() {
		if relErr := r.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			r.logg.Error(ctx, "failed to release pipeline lock", relErr)
		}
	}()
	return fn(ctx)
}
