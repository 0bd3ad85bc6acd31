package sheetstore

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/ledger"
	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	"github.com/angelmondragon/palletflow/pkg/types"
	"github.com/angelmondragon/palletflow/pkg/workbook"
)

// Ledger is the transaction ledger sheet. It does not enforce the Built
// uniqueness key; the ledger writer's scan does.
type Ledger struct {
	store *Store
}

var _ ledger.Store = (*Ledger)(nil)

func (l *Ledger) List(ctx context.Context) (ledger.Table, error) {
	var table ledger.Table
	err := l.store.book.View(func(f *workbook.File) error {
		sheet, cols, err := readSheet(f, l.store.sheets.Ledger, schema.Ledger)
		if err != nil {
			return err
		}
		table.Columns = cols
		issues := cellIssues{}
		for i, row := range sheet.Rows {
			table.Facts = append(table.Facts, decodeFact(sheet, row, int64(i+1), issues))
		}
		table.Invalid = issues.orNil()
		return nil
	})
	return table, err
}

func (l *Ledger) Append(ctx context.Context, fact *models.LedgerFact) error {
	return l.store.book.Update(func(f *workbook.File) error {
		sheet, _, err := readSheet(f, l.store.sheets.Ledger, schema.Ledger)
		if err != nil {
			return err
		}
		rowNum, err := f.AppendRow(sheet, map[string]string{
			schema.ColTimestamp:      types.FormatTimestamp(fact.Timestamp),
			schema.ColActionType:     string(fact.ActionType),
			schema.ColLedgerKey:      fact.PalletGRN,
			schema.ColPalletID:       fact.PalletID,
			schema.ColGRNID:          fact.GRNID,
			schema.ColSKUID:          fact.SKUID,
			schema.ColSKUDescription: fact.SKUDescription,
			schema.ColBatchNo:        fact.BatchNo,
			schema.ColQtyChange:      types.FormatQuantity(fact.QtyChange),
			schema.ColStatus:         fact.Status,
		})
		if err != nil {
			return err
		}
		fact.RowNum = rowNum
		return nil
	})
}

func decodeFact(sheet *workbook.Sheet, row []string, rowNum int64, issues cellIssues) models.LedgerFact {
	// unknown actions are kept verbatim; the materializer reports them
	action, _ := enums.ParseActionType(sheet.Value(row, schema.ColActionType))
	fact := models.LedgerFact{
		RowNum:         rowNum,
		ActionType:     action,
		PalletGRN:      types.NormalizeKey(sheet.Value(row, schema.ColLedgerKey)),
		PalletID:       types.NormalizeKey(sheet.Value(row, schema.ColPalletID)),
		GRNID:          types.NormalizeKey(sheet.Value(row, schema.ColGRNID)),
		SKUID:          text(sheet, row, schema.ColSKUID),
		SKUDescription: sheet.Value(row, schema.ColSKUDescription),
		BatchNo:        text(sheet, row, schema.ColBatchNo),
		Status:         sheet.Value(row, schema.ColStatus),
	}

	if ts, err := parseTimestamp(sheet.Value(row, schema.ColTimestamp)); err != nil {
		issues.add(sheet.Name, rowNum, schema.ColTimestamp, err)
	} else {
		fact.Timestamp = ts
	}

	if qty, err := types.ParseQuantity(sheet.Value(row, schema.ColQtyChange)); err != nil {
		issues.add(sheet.Name, rowNum, schema.ColQtyChange, err)
	} else {
		fact.QtyChange = qty
	}
	return fact
}
