package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/palletflow/internal/palletstatus"
	"github.com/angelmondragon/palletflow/internal/pipeline"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/logger"
)

const (
	PipelineJobName = "pallet-pipeline"
	RebuildJobName  = "pallet-status-rebuild"
)

type pipelineRunner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

type statusRebuilder interface {
	Rebuild(ctx context.Context) (palletstatus.RebuildCounts, error)
}

// NewPipelineJob builds the job that records the latest build and reconciles
// the pallet it names.
func NewPipelineJob(logg *logger.Logger, runner pipelineRunner) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if runner == nil {
		return nil, fmt.Errorf("pipeline runner required")
	}
	return &pipelineJob{logg: logg, runner: runner}, nil
}

type pipelineJob struct {
	logg   *logger.Logger
	runner pipelineRunner
}

func (j *pipelineJob) Name() string { return PipelineJobName }

func (j *pipelineJob) Run(ctx context.Context) error {
	report, err := j.runner.Run(ctx)
	if err != nil {
		return skipConflict(ctx, j.logg, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"run_id":   report.RunID,
		"outcome":  string(report.Ledger.Outcome),
		"warnings": len(report.Warnings),
	}), "pipeline job finished")
	return nil
}

// NewRebuildJob builds the job that recomputes every pallet status row.
func NewRebuildJob(logg *logger.Logger, rebuilder statusRebuilder) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rebuilder == nil {
		return nil, fmt.Errorf("status rebuilder required")
	}
	return &rebuildJob{logg: logg, rebuilder: rebuilder}, nil
}

type rebuildJob struct {
	logg      *logger.Logger
	rebuilder statusRebuilder
}

func (j *rebuildJob) Name() string { return RebuildJobName }

func (j *rebuildJob) Run(ctx context.Context) error {
	counts, err := j.rebuilder.Rebuild(ctx)
	if err != nil {
		return skipConflict(ctx, j.logg, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"rows_written": counts.RowsWritten,
		"skipped":      counts.Skipped,
		"invalid":      counts.Invalid,
	}), "rebuild job finished")
	return nil
}

// skipConflict turns a held run lock into a skipped cycle.
func skipConflict(ctx context.Context, logg *logger.Logger, err error) error {
	if pferrors.IsCode(err, pferrors.CodeConflict) {
		logg.Info(ctx, "pipeline busy; skipping cycle")
		return nil
	}
	return err
}
