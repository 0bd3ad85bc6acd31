package sheetstore

import (
	"context"
	"time"

	"github.com/angelmondragon/palletflow/internal/builds"
	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/types"
	"github.com/angelmondragon/palletflow/pkg/workbook"
)

// Builds reads build records from the build sheet.
type Builds struct {
	store *Store
}

var _ builds.Source = (*Builds)(nil)

func (b *Builds) List(ctx context.Context) (builds.Table, error) {
	var table builds.Table
	err := b.store.book.View(func(f *workbook.File) error {
		sheet, cols, err := readSheet(f, b.store.sheets.Build, schema.Build)
		if err != nil {
			return err
		}
		table.Columns = cols
		issues := cellIssues{}
		for i, row := range sheet.Rows {
			table.Records = append(table.Records, decodeBuild(sheet, row, int64(i+1), issues))
		}
		table.Invalid = issues.orNil()
		return nil
	})
	return table, err
}

// Create appends a build record. The external producer owns this sheet; the
// method serves seeding tools and tests.
func (b *Builds) Create(ctx context.Context, rec *models.BuildRecord) error {
	return b.store.book.Update(func(f *workbook.File) error {
		sheet, _, err := readSheet(f, b.store.sheets.Build, schema.Build)
		if err != nil {
			return err
		}
		values := map[string]string{
			schema.ColGRNID:            rec.GRNID,
			schema.ColPalletID:         rec.PalletID,
			schema.ColPalletGRN:        rec.PalletGRN,
			schema.ColSKUID:            rec.SKUID,
			schema.ColSKUDescription:   rec.SKUDescription,
			schema.ColBatchNumber:      rec.BatchNumber,
			schema.ColQuantityBoxes:    types.FormatQuantity(rec.QuantityBoxes),
			schema.ColExpiryDate:       rec.ExpiryDate,
			schema.ColVehicleCompleted: types.FormatBool(rec.VehicleCompleted),
		}
		if rec.Timestamp != nil {
			values[schema.ColTimestamp] = types.FormatTimestamp(*rec.Timestamp)
		}
		rowNum, err := f.AppendRow(sheet, values)
		if err != nil {
			return err
		}
		rec.RowNum = rowNum
		return nil
	})
}

func decodeBuild(sheet *workbook.Sheet, row []string, rowNum int64, issues cellIssues) models.BuildRecord {
	rec := models.BuildRecord{
		RowNum:           rowNum,
		GRNID:            types.NormalizeKey(sheet.Value(row, schema.ColGRNID)),
		PalletID:         types.NormalizeKey(sheet.Value(row, schema.ColPalletID)),
		PalletGRN:        types.NormalizeKey(sheet.Value(row, schema.ColPalletGRN)),
		SKUID:            text(sheet, row, schema.ColSKUID),
		SKUDescription:   sheet.Value(row, schema.ColSKUDescription),
		BatchNumber:      text(sheet, row, schema.ColBatchNumber),
		ExpiryDate:       types.NormalizeDate(sheet.Value(row, schema.ColExpiryDate)),
		VehicleCompleted: types.ParseCompletionFlag(sheet.Value(row, schema.ColVehicleCompleted)),
	}

	if ts, err := parseTimestamp(sheet.Value(row, schema.ColTimestamp)); err != nil {
		issues.add(sheet.Name, rowNum, schema.ColTimestamp, err)
	} else if !ts.IsZero() {
		rec.Timestamp = &ts
	}

	if qty, err := types.ParseQuantity(sheet.Value(row, schema.ColQuantityBoxes)); err != nil {
		issues.add(sheet.Name, rowNum, schema.ColQuantityBoxes, err)
	} else {
		rec.QuantityBoxes = qty
	}
	return rec
}

// parseTimestamp reads a timestamp cell at the second precision cells are written with.
func parseTimestamp(raw string) (time.Time, error) {
	ts, err := types.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.Truncate(time.Second), nil
}
