package palletstatus

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/palletflow/internal/builds"
	"github.com/angelmondragon/palletflow/internal/ledger"
	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/types"
)

// Result reports what a targeted materialization did.
type Result struct {
	PalletID           string              `json:"pallet_id"`
	LedgerUpdated      bool                `json:"ledger_updated"`
	ExpiryUpdated      bool                `json:"expiry_updated"`
	Written            bool                `json:"written"`
	Action             enums.ActionType    `json:"action,omitempty"`
	UnrecognizedAction bool                `json:"unrecognized_action"`
	Row                models.PalletStatus `json:"-"`
}

// RebuildCounts summarises a full rebuild. Invalid counts pallets left
// untouched because the rows they derive from hold unreadable cells.
type RebuildCounts struct {
	LedgerApplied       int `json:"ledger_applied"`
	ExpiryApplied       int `json:"expiry_applied"`
	Skipped             int `json:"skipped"`
	RowsWritten         int `json:"rows_written"`
	UnrecognizedActions int `json:"unrecognized_actions"`
	Invalid             int `json:"invalid"`
}

// Options tune the materializer.
type Options struct {
	// SkipExpiryOnEmpty stops the build expiry from landing on a pallet the
	// latest fact just emptied.
	SkipExpiryOnEmpty bool
}

// Service materializes pallet status rows from the ledger and build source.
type Service interface {
	MaterializeOne(ctx context.Context, palletID string) (Result, error)
	MaterializeAll(ctx context.Context) (RebuildCounts, error)
}

type service struct {
	ledger ledger.Reader
	source builds.Source
	store  Store
	opts   Options
	now    func() time.Time
}

// NewService wires the materializer.
func NewService(ledgerReader ledger.Reader, source builds.Source, store Store, opts Options) (Service, error) {
	if ledgerReader == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if source == nil {
		return nil, fmt.Errorf("build source required")
	}
	if store == nil {
		return nil, fmt.Errorf("status store required")
	}
	return &service{
		ledger: ledgerReader,
		source: source,
		store:  store,
		opts:   opts,
		now:    time.Now,
	}, nil
}

type inputs struct {
	ledger ledger.Table
	builds builds.Table
	status Table
}

func (s *service) load(ctx context.Context) (inputs, error) {
	var in inputs
	var err error

	if in.status, err = s.store.List(ctx); err != nil {
		return inputs{}, dependency(err, "read status view")
	}
	if err := in.status.Columns.Require(schema.Status.Name, schema.MaterializerStatusColumns...); err != nil {
		return inputs{}, err
	}
	if in.ledger, err = s.ledger.List(ctx); err != nil {
		return inputs{}, dependency(err, "read ledger")
	}
	if err := in.ledger.Columns.Require(schema.Ledger.Name, schema.MaterializerLedgerColumns...); err != nil {
		return inputs{}, err
	}
	if in.builds, err = s.source.List(ctx); err != nil {
		return inputs{}, dependency(err, "read build source")
	}
	if err := in.builds.Columns.Require(schema.Build.Name, schema.MaterializerBuildColumns...); err != nil {
		return inputs{}, err
	}
	return in, nil
}

func (s *service) MaterializeOne(ctx context.Context, palletID string) (Result, error) {
	key := types.NormalizeKey(palletID)
	if key == "" {
		return Result{}, pferrors.New(pferrors.CodeValidation, "pallet id is required")
	}

	in, err := s.load(ctx)
	if err != nil {
		return Result{}, err
	}

	current, ok := in.status.Find(key)
	if !ok {
		return Result{PalletID: key}, pferrors.New(pferrors.CodeNotFound, "pallet has no status row").
			WithDetails(map[string]any{"pallet_id": key})
	}

	var factPtr *models.LedgerFact
	if fact, ok := in.ledger.LatestFor(key); ok {
		factPtr = &fact
	}
	var buildPtr *models.BuildRecord
	if rec, ok := in.builds.LatestFor(key); ok {
		buildPtr = &rec
	}

	d := derive(current, factPtr, buildPtr, s.opts.SkipExpiryOnEmpty)
	result := Result{
		PalletID:           key,
		LedgerUpdated:      d.ledgerFound,
		ExpiryUpdated:      d.expiryFound,
		UnrecognizedAction: d.unrecognized,
		Row:                current,
	}
	if factPtr != nil {
		result.Action = factPtr.ActionType
	}

	if (!d.ledgerFound && !d.expiryFound) || d.row.SameState(current) {
		return result, nil
	}
	if err := unreadable(in, current, factPtr); err != nil {
		return result, err
	}

	row := s.stamp(d.row)
	if err := s.store.Update(ctx, []models.PalletStatus{row}); err != nil {
		return Result{}, dependency(err, "write status row")
	}
	result.Written = true
	result.Row = row
	return result, nil
}

func (s *service) MaterializeAll(ctx context.Context) (RebuildCounts, error) {
	in, err := s.load(ctx)
	if err != nil {
		return RebuildCounts{}, err
	}

	facts := in.ledger.LatestByPallet()
	latestBuilds := in.builds.LatestByPallet()

	var counts RebuildCounts
	seen := map[string]bool{}
	var changed []models.PalletStatus
	for _, current := range in.status.Rows {
		key := types.NormalizeKey(current.PalletID)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		var factPtr *models.LedgerFact
		if fact, ok := facts[key]; ok {
			factPtr = &fact
		}
		var buildPtr *models.BuildRecord
		if rec, ok := latestBuilds[key]; ok {
			buildPtr = &rec
		}

		d := derive(current, factPtr, buildPtr, s.opts.SkipExpiryOnEmpty)
		if d.ledgerFound {
			counts.LedgerApplied++
		}
		if d.expiryFound {
			counts.ExpiryApplied++
		}
		if d.unrecognized {
			counts.UnrecognizedActions++
		}
		if (d.ledgerFound || d.expiryFound) && !d.row.SameState(current) {
			if unreadable(in, current, factPtr) != nil {
				counts.Invalid++
				continue
			}
			changed = append(changed, s.stamp(d.row))
		}
	}

	for key := range facts {
		if !seen[key] {
			counts.Skipped++
			seen[key] = true
		}
	}
	for key := range latestBuilds {
		if !seen[key] {
			counts.Skipped++
			seen[key] = true
		}
	}

	if len(changed) > 0 {
		if err := s.store.Update(ctx, changed); err != nil {
			return RebuildCounts{}, dependency(err, "write status rows")
		}
	}
	counts.RowsWritten = len(changed)
	return counts, nil
}

// unreadable returns the decode failure of a row a write would rest on: the
// selected fact, or the status row itself when no fact replaces its cells.
func unreadable(in inputs, current models.PalletStatus, fact *models.LedgerFact) error {
	if fact != nil {
		return in.ledger.RowError(fact.RowNum)
	}
	return in.status.RowError(current.RowNum)
}

func (s *service) stamp(row models.PalletStatus) models.PalletStatus {
	now := s.now().UTC()
	row.MaterializedAt = &now
	return row
}

// dependency wraps store failures that are not already typed.
func dependency(err error, msg string) error {
	if pferrors.As(err) != nil {
		return err
	}
	return pferrors.Wrap(pferrors.CodeDependency, err, msg)
}
