package sheetstore

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/grn"
	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/types"
	"github.com/angelmondragon/palletflow/pkg/workbook"
)

// GRN is the goods-receipt note sheet.
type GRN struct {
	store *Store
}

var _ grn.Store = (*GRN)(nil)

func (g *GRN) List(ctx context.Context) (grn.Table, error) {
	var table grn.Table
	err := g.store.book.View(func(f *workbook.File) error {
		sheet, cols, err := readSheet(f, g.store.sheets.GRN, schema.GRN)
		if err != nil {
			return err
		}
		table.Columns = cols
		for i, row := range sheet.Rows {
			table.Entries = append(table.Entries, models.GRNEntry{
				RowNum: int64(i + 1),
				GRNID:  types.NormalizeKey(sheet.Value(row, schema.ColGRNID)),
				Status: sheet.Value(row, schema.ColStatus),
			})
		}
		return nil
	})
	return table, err
}

// UpdateStatus writes the single Status cell of the first entry matching grnID.
func (g *GRN) UpdateStatus(ctx context.Context, grnID, status string) error {
	return g.store.book.Update(func(f *workbook.File) error {
		sheet, _, err := readSheet(f, g.store.sheets.GRN, schema.GRN)
		if err != nil {
			return err
		}
		for i, row := range sheet.Rows {
			if types.KeysEqual(sheet.Value(row, schema.ColGRNID), grnID) {
				return f.SetValues(sheet, int64(i+1), map[string]string{schema.ColStatus: status})
			}
		}
		return pferrors.New(pferrors.CodeNotFound, "grn entry not found").
			WithDetails(map[string]any{"sheet": sheet.Name, "grn_id": grnID})
	})
}

// Create appends a GRN entry.
func (g *GRN) Create(ctx context.Context, entry *models.GRNEntry) error {
	return g.store.book.Update(func(f *workbook.File) error {
		sheet, _, err := readSheet(f, g.store.sheets.GRN, schema.GRN)
		if err != nil {
			return err
		}
		rowNum, err := f.AppendRow(sheet, map[string]string{
			schema.ColGRNID:  entry.GRNID,
			schema.ColStatus: entry.Status,
		})
		if err != nil {
			return err
		}
		entry.RowNum = rowNum
		return nil
	})
}
