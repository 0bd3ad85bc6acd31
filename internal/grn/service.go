package grn

import (
	"context"
	"fmt"

	"github.com/angelmondragon/palletflow/internal/builds"
	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/enums"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/types"
)

// Outcome is the result of propagating a pallet's delivery state to its GRN.
type Outcome string

const (
	OutcomeUpdated  Outcome = "updated"
	OutcomeNoOp     Outcome = "noop"
	OutcomeNotFound Outcome = "not_found"
)

// Result describes what Propagate did.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	PalletID string  `json:"pallet_id"`
	GRNID    string  `json:"grn_id"`
	// Written is false when the entry already carried the target status.
	Written bool `json:"written"`
}

// Service defines the upstream status propagator.
type Service interface {
	// Propagate marks the GRN of the pallet's latest build as unloading while the
	// delivery is incomplete. A missing build row or GRN entry yields
	// OutcomeNotFound together with a NOT_FOUND error.
	Propagate(ctx context.Context, palletID string) (Result, error)
}

type service struct {
	source builds.Source
	store  Store
}

// NewService wires the propagator.
func NewService(source builds.Source, store Store) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("build source required")
	}
	if store == nil {
		return nil, fmt.Errorf("grn store required")
	}
	return &service{source: source, store: store}, nil
}

func (s *service) Propagate(ctx context.Context, palletID string) (Result, error) {
	key := types.NormalizeKey(palletID)
	if key == "" {
		return Result{}, pferrors.New(pferrors.CodeValidation, "pallet id is required")
	}
	result := Result{PalletID: key}

	buildTable, err := s.source.List(ctx)
	if err != nil {
		return Result{}, dependency(err, "read build source")
	}
	if err := buildTable.Columns.Require(schema.Build.Name, schema.PropagatorBuildColumns...); err != nil {
		return Result{}, err
	}

	rec, ok := buildTable.LatestFor(key)
	if !ok {
		result.Outcome = OutcomeNotFound
		return result, pferrors.New(pferrors.CodeNotFound, "pallet has no build record").
			WithDetails(map[string]any{"pallet_id": key})
	}
	result.GRNID = types.NormalizeKey(rec.GRNID)
	if rec.VehicleCompleted {
		result.Outcome = OutcomeNoOp
		return result, nil
	}

	grnTable, err := s.store.List(ctx)
	if err != nil {
		return Result{}, dependency(err, "read grn entries")
	}
	if err := grnTable.Columns.Require(schema.GRN.Name, schema.PropagatorGRNColumns...); err != nil {
		return Result{}, err
	}

	entry, ok := grnTable.Find(result.GRNID)
	if !ok {
		result.Outcome = OutcomeNotFound
		return result, pferrors.New(pferrors.CodeNotFound, "grn entry not found").
			WithDetails(map[string]any{"pallet_id": key, "grn_id": result.GRNID})
	}

	result.Outcome = OutcomeUpdated
	if entry.Status == enums.GRNStatusUnloadingInProgress {
		return result, nil
	}
	if err := s.store.UpdateStatus(ctx, entry.GRNID, enums.GRNStatusUnloadingInProgress); err != nil {
		return Result{}, dependency(err, "write grn status")
	}
	result.Written = true
	return result, nil
}

// dependency wraps store failures that are not already typed.
func dependency(err error, msg string) error {
	if pferrors.As(err) != nil {
		return err
	}
	return pferrors.Wrap(pferrors.CodeDependency, err, msg)
}
