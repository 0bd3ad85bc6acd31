package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/palletflow/api/responses"
	"github.com/angelmondragon/palletflow/api/validators"
	"github.com/angelmondragon/palletflow/internal/grn"
	"github.com/angelmondragon/palletflow/internal/ledger"
	"github.com/angelmondragon/palletflow/internal/palletstatus"
	"github.com/angelmondragon/palletflow/internal/pipeline"
	"github.com/angelmondragon/palletflow/pkg/logger"
)

// PipelineRunner is the surface of *pipeline.Runner the API drives.
type PipelineRunner interface {
	Run(ctx context.Context) (pipeline.Report, error)
	MaterializePallet(ctx context.Context, palletID string) (palletstatus.Result, error)
	PropagatePallet(ctx context.Context, palletID string) (grn.Result, error)
	Rebuild(ctx context.Context) (palletstatus.RebuildCounts, error)
}

// PipelineRun processes the latest build record. A fresh Built fact answers
// 201, a duplicate 200.
func PipelineRun(runner PipelineRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := runner.Run(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if report.Ledger.Outcome == ledger.OutcomeRecorded {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, report)
	}
}

func MaterializePallet(runner PipelineRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		palletID, err := validators.ParseIdentifierParam(r, "palletID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := runner.MaterializePallet(r.Context(), palletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func PropagateGRNStatus(runner PipelineRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		palletID, err := validators.ParseIdentifierParam(r, "palletID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := runner.PropagatePallet(r.Context(), palletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Rebuild(runner PipelineRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := runner.Rebuild(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}
