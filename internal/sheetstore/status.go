package sheetstore

import (
	"context"
	"time"

	"github.com/angelmondragon/palletflow/internal/palletstatus"
	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/types"
	"github.com/angelmondragon/palletflow/pkg/workbook"
)

// Status is the pallet status sheet.
type Status struct {
	store *Store
}

var _ palletstatus.Store = (*Status)(nil)

func (s *Status) List(ctx context.Context) (palletstatus.Table, error) {
	var table palletstatus.Table
	err := s.store.book.View(func(f *workbook.File) error {
		sheet, cols, err := readSheet(f, s.store.sheets.Status, schema.Status)
		if err != nil {
			return err
		}
		table.Columns = cols
		issues := cellIssues{}
		for i, row := range sheet.Rows {
			table.Rows = append(table.Rows, decodeStatus(sheet, row, int64(i+1), issues))
		}
		table.Invalid = issues.orNil()
		return nil
	})
	return table, err
}

// Update rewrites the materialized cells of each row and saves once. The
// Pallet_ID cell is never written.
func (s *Status) Update(ctx context.Context, rows []models.PalletStatus) error {
	if len(rows) == 0 {
		return nil
	}
	return s.store.book.Update(func(f *workbook.File) error {
		sheet, _, err := readSheet(f, s.store.sheets.Status, schema.Status)
		if err != nil {
			return err
		}
		for _, row := range rows {
			rowNum, ok := locate(sheet, row)
			if !ok {
				return pferrors.New(pferrors.CodeNotFound, "pallet has no status row").
					WithDetails(map[string]any{"sheet": sheet.Name, "pallet_id": row.PalletID})
			}
			if err := f.SetValues(sheet, rowNum, s.encodeStatus(row)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Create appends a status row. Allocation tooling owns row creation.
func (s *Status) Create(ctx context.Context, row *models.PalletStatus) error {
	return s.store.book.Update(func(f *workbook.File) error {
		sheet, _, err := readSheet(f, s.store.sheets.Status, schema.Status)
		if err != nil {
			return err
		}
		values := s.encodeStatus(*row)
		values[schema.ColPalletID] = row.PalletID
		rowNum, err := f.AppendRow(sheet, values)
		if err != nil {
			return err
		}
		row.RowNum = rowNum
		return nil
	})
}

// locate finds the sheet row for a status row, trusting RowNum when it still
// points at the same pallet.
func locate(sheet *workbook.Sheet, row models.PalletStatus) (int64, bool) {
	if row.RowNum >= 1 && row.RowNum <= int64(len(sheet.Rows)) {
		if types.KeysEqual(sheet.Value(sheet.Rows[row.RowNum-1], schema.ColPalletID), row.PalletID) {
			return row.RowNum, true
		}
	}
	for i, r := range sheet.Rows {
		if types.KeysEqual(sheet.Value(r, schema.ColPalletID), row.PalletID) {
			return int64(i + 1), true
		}
	}
	return 0, false
}

func (s *Status) encodeStatus(row models.PalletStatus) map[string]string {
	occupancy := string(row.OccupancyStatus)
	if s.store.decorateOccupancy && row.OccupancyStatus.IsValid() {
		occupancy = row.OccupancyStatus.Decorated()
	}
	return map[string]string{
		schema.ColOccupancyStatus:       occupancy,
		schema.ColGRNID:                 row.GRNID,
		schema.ColSKUID:                 row.SKUID,
		schema.ColSKUDescription:        row.SKUDescription,
		schema.ColExpiryDate:            row.ExpiryDate,
		schema.ColBatchNumber:           row.BatchNumber,
		schema.ColLocationID:            row.LocationID,
		schema.ColCurrentQty:            types.FormatQuantity(row.CurrentQty),
		schema.ColLastUpdated:           formatOptional(row.LastLedgerAt),
		schema.ColAssignmentStatus:      string(row.AssignmentStatus),
		schema.ColStatusUpdateTimestamp: formatOptional(row.MaterializedAt),
	}
}

func decodeStatus(sheet *workbook.Sheet, row []string, rowNum int64, issues cellIssues) models.PalletStatus {
	// labels outside the known set are kept so a rewrite does not lose them
	occupancy, _ := enums.ParseOccupancyStatus(sheet.Value(row, schema.ColOccupancyStatus))
	status := models.PalletStatus{
		RowNum:           rowNum,
		PalletID:         types.NormalizeKey(sheet.Value(row, schema.ColPalletID)),
		OccupancyStatus:  occupancy,
		GRNID:            types.NormalizeKey(sheet.Value(row, schema.ColGRNID)),
		SKUID:            text(sheet, row, schema.ColSKUID),
		SKUDescription:   sheet.Value(row, schema.ColSKUDescription),
		ExpiryDate:       types.NormalizeDate(sheet.Value(row, schema.ColExpiryDate)),
		BatchNumber:      text(sheet, row, schema.ColBatchNumber),
		LocationID:       sheet.Value(row, schema.ColLocationID),
		AssignmentStatus: enums.ParseAssignmentStatus(sheet.Value(row, schema.ColAssignmentStatus)),
	}

	if qty, err := types.ParseQuantity(sheet.Value(row, schema.ColCurrentQty)); err != nil {
		issues.add(sheet.Name, rowNum, schema.ColCurrentQty, err)
	} else {
		status.CurrentQty = qty
	}

	for _, column := range []string{schema.ColLastUpdated, schema.ColStatusUpdateTimestamp} {
		ts, err := parseTimestamp(sheet.Value(row, column))
		if err != nil {
			issues.add(sheet.Name, rowNum, column, err)
			continue
		}
		if ts.IsZero() {
			continue
		}
		if column == schema.ColLastUpdated {
			status.LastLedgerAt = &ts
		} else {
			status.MaterializedAt = &ts
		}
	}
	return status
}

func formatOptional(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return types.FormatTimestamp(*ts)
}
