package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/palletflow/internal/builds"
	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// Outcome is the result of recording the latest build.
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
)

// Result describes what RecordBuilt did.
type Result struct {
	Outcome  Outcome            `json:"outcome"`
	PalletID string             `json:"pallet_id"`
	GRNID    string             `json:"grn_id"`
	Fact     *models.LedgerFact `json:"-"`
}

// Service defines the ledger writer.
type Service interface {
	// RecordBuilt turns the most recently appended build record into a Built fact.
	// Repeating the call for an already recorded pallet/GRN pair returns a
	// duplicate result and writes nothing.
	RecordBuilt(ctx context.Context) (Result, error)
	HasBuilt(ctx context.Context, palletID, grnID string) (bool, error)
}

type service struct {
	source   builds.Source
	store    Store
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires a ledger writer over the build source and ledger store.
func NewService(source builds.Source, store Store) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("build source required")
	}
	if store == nil {
		return nil, fmt.Errorf("ledger store required")
	}
	return &service{
		source:   source,
		store:    store,
		validate: newValidator(),
		now:      time.Now,
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("action_type", func(fl validator.FieldLevel) bool {
		return enums.ActionType(fl.Field().String()).IsValid()
	})
	return v
}

func (s *service) RecordBuilt(ctx context.Context) (Result, error) {
	buildTable, err := s.source.List(ctx)
	if err != nil {
		return Result{}, dependency(err, "read build source")
	}
	if err := buildTable.Columns.Require(schema.Build.Name, schema.WriterBuildColumns...); err != nil {
		return Result{}, err
	}
	latest, ok := buildTable.Latest()
	if !ok {
		return Result{}, pferrors.Newf(pferrors.CodeEmptySource, "%s has no data rows", schema.Build.Name).
			WithDetails(map[string]any{"table": schema.Build.Name})
	}
	if err := buildTable.RowError(latest.RowNum); err != nil {
		return Result{}, err
	}

	ledgerTable, err := s.store.List(ctx)
	if err != nil {
		return Result{}, dependency(err, "read ledger")
	}
	if err := ledgerTable.Columns.Require(schema.Ledger.Name, schema.WriterLedgerColumns...); err != nil {
		return Result{}, err
	}

	fact := s.factFromBuild(latest)
	if err := s.validate.Struct(fact); err != nil {
		return Result{}, formatValidationErrors(err, latest.RowNum)
	}

	result := Result{PalletID: fact.PalletID, GRNID: fact.GRNID}
	if ledgerTable.HasBuilt(fact.PalletID, fact.GRNID) {
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	if err := s.store.Append(ctx, fact); err != nil {
		if errors.Is(err, ErrDuplicateFact) {
			result.Outcome = OutcomeDuplicate
			return result, nil
		}
		return Result{}, dependency(err, "append ledger fact")
	}

	result.Outcome = OutcomeRecorded
	result.Fact = fact
	return result, nil
}

func (s *service) HasBuilt(ctx context.Context, palletID, grnID string) (bool, error) {
	if strings.TrimSpace(palletID) == "" || strings.TrimSpace(grnID) == "" {
		return false, pferrors.New(pferrors.CodeValidation, "pallet id and grn id are required")
	}
	table, err := s.store.List(ctx)
	if err != nil {
		return false, dependency(err, "read ledger")
	}
	return table.HasBuilt(palletID, grnID), nil
}

func (s *service) factFromBuild(rec models.BuildRecord) *models.LedgerFact {
	ts := s.now().UTC()
	if rec.Timestamp != nil && !rec.Timestamp.IsZero() {
		ts = *rec.Timestamp
	}
	palletGRN := rec.PalletGRN
	if strings.TrimSpace(palletGRN) == "" && rec.PalletID != "" && rec.GRNID != "" {
		palletGRN = rec.PalletID + "-" + rec.GRNID
	}
	return &models.LedgerFact{
		Timestamp:      ts,
		ActionType:     enums.ActionTypeBuilt,
		PalletGRN:      palletGRN,
		PalletID:       rec.PalletID,
		GRNID:          rec.GRNID,
		SKUID:          rec.SKUID,
		SKUDescription: rec.SKUDescription,
		BatchNo:        rec.BatchNumber,
		QtyChange:      rec.QuantityBoxes,
		Status:         enums.LedgerStatusReadyForPutaway,
	}
}

func formatValidationErrors(err error, rowNum int64) *pferrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]any{"row": rowNum}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pferrors.New(pferrors.CodeValidation, "latest build record cannot be recorded").WithDetails(details)
	}
	return pferrors.Wrap(pferrors.CodeValidation, err, "latest build record cannot be recorded")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "action_type":
		return "is not a known action type"
	}
	return "is invalid"
}

// dependency wraps store failures that are not already typed.
func dependency(err error, msg string) error {
	if pferrors.As(err) != nil {
		return err
	}
	return pferrors.Wrap(pferrors.CodeDependency, err, msg)
}
