// Package sheetstore serves the four warehouse tables from sheets of one xlsx
// workbook. Cells are decoded once at ingestion: keys are canonicalised, serial
// dates converted and decorated labels stripped.
package sheetstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/config"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/workbook"
)

// Sheets names the sheet backing each table.
type Sheets struct {
	Build  string
	Ledger string
	Status string
	GRN    string
}

// Store bundles the sheet-backed table stores.
type Store struct {
	book              *workbook.Book
	sheets            Sheets
	decorateOccupancy bool
}

// New returns a store over the workbook configured in cfg.
func New(cfg config.StoreConfig) (*Store, error) {
	if cfg.WorkbookPath == "" {
		return nil, fmt.Errorf("workbook path required")
	}
	return NewFromBook(workbook.New(cfg.WorkbookPath), SheetsFrom(cfg), cfg.DecorateOccupancy), nil
}

// SheetsFrom reads the configured sheet names.
func SheetsFrom(cfg config.StoreConfig) Sheets {
	return Sheets{
		Build:  cfg.BuildSheet,
		Ledger: cfg.LedgerSheet,
		Status: cfg.StatusSheet,
		GRN:    cfg.GRNSheet,
	}
}

// NewFromBook wires a store over an already opened book handle.
func NewFromBook(book *workbook.Book, sheets Sheets, decorateOccupancy bool) *Store {
	return &Store{book: book, sheets: sheets, decorateOccupancy: decorateOccupancy}
}

// Builds returns the build record source.
func (s *Store) Builds() *Builds { return &Builds{store: s} }

// Ledger returns the transaction ledger store.
func (s *Store) Ledger() *Ledger { return &Ledger{store: s} }

// Status returns the pallet status store.
func (s *Store) Status() *Status { return &Status{store: s} }

// GRN returns the GRN entry store.
func (s *Store) GRN() *GRN { return &GRN{store: s} }

// Init creates a workbook holding every sheet with its header row.
func Init(path string, sheets Sheets) error {
	return workbook.Create(path, map[string][]string{
		sheets.Build:  schema.Build.Columns,
		sheets.Ledger: schema.Ledger.Columns,
		sheets.Status: schema.Status.Columns,
		sheets.GRN:    schema.GRN.Columns,
	}, sheets.Build, sheets.Ledger, sheets.Status, sheets.GRN)
}

// readSheet loads a sheet, mapping a missing sheet to a SCHEMA_ERROR for table.
func readSheet(f *workbook.File, name string, table schema.Table) (*workbook.Sheet, schema.Columns, error) {
	sheet, err := f.Sheet(name)
	if err != nil {
		if errors.Is(err, workbook.ErrSheetNotFound) {
			return nil, nil, pferrors.New(pferrors.CodeSchema, "sheet not found").
				WithDetails(map[string]any{"table": table.Name, "sheet": name})
		}
		return nil, nil, err
	}
	return sheet, schema.NewColumns(sheet.Columns()...), nil
}

// text reads a free-form cell such as a SKU or batch code. It is trimmed but
// never canonicalised.
func text(sheet *workbook.Sheet, row []string, column string) string {
	return strings.TrimSpace(sheet.Value(row, column))
}

// cellIssues keeps the first undecodable cell of each row. Decoding carries on
// with the bad cell zeroed; components reject a flagged row only when they select it.
type cellIssues map[int64]error

func (c cellIssues) add(sheet string, rowNum int64, column string, err error) {
	if _, ok := c[rowNum]; ok {
		return
	}
	c[rowNum] = cellError(sheet, rowNum, column, err)
}

func (c cellIssues) orNil() map[int64]error {
	if len(c) == 0 {
		return nil
	}
	return c
}

// cellError reports an undecodable cell.
func cellError(sheet string, rowNum int64, column string, err error) error {
	return pferrors.Wrap(pferrors.CodeValidation, err, "invalid cell").
		WithDetails(map[string]any{"sheet": sheet, "row": rowNum, "column": column})
}
