package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/palletflow/pkg/db/models"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/pagination"
	"github.com/angelmondragon/palletflow/pkg/types"
)

// HistoryPage is one newest-first page of a pallet's ledger facts.
type HistoryPage struct {
	PalletID   string              `json:"pallet_id"`
	Facts      []models.LedgerFact `json:"facts"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// History pages through the ledger facts recorded for a pallet.
type History struct {
	reader Reader
}

// NewHistory wires a history reader over the ledger.
func NewHistory(reader Reader) (*History, error) {
	if reader == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	return &History{reader: reader}, nil
}

// ForPallet returns the pallet's facts newest first. A pallet with no facts at
// all is NOT_FOUND; running past the last page yields an empty page.
func (h *History) ForPallet(ctx context.Context, palletID string, params pagination.Params) (HistoryPage, error) {
	palletID = strings.TrimSpace(palletID)
	if palletID == "" {
		return HistoryPage{}, pferrors.New(pferrors.CodeValidation, "pallet id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return HistoryPage{}, pferrors.Wrap(pferrors.CodeValidation, err, "invalid cursor")
	}

	table, err := h.reader.List(ctx)
	if err != nil {
		return HistoryPage{}, dependency(err, "list ledger")
	}

	limit := pagination.LimitWithBuffer(params.Limit)
	page := HistoryPage{PalletID: palletID, Facts: []models.LedgerFact{}}
	seen := false
	for i := len(table.Facts) - 1; i >= 0; i-- {
		fact := table.Facts[i]
		if !types.KeysEqual(fact.PalletID, palletID) {
			continue
		}
		seen = true
		if cursor != nil && fact.RowNum >= cursor.RowNum {
			continue
		}
		page.Facts = append(page.Facts, fact)
		if len(page.Facts) == limit {
			break
		}
	}
	if !seen {
		return HistoryPage{}, pferrors.New(pferrors.CodeNotFound, "pallet has no ledger facts").
			WithDetails(map[string]any{"pallet_id": palletID})
	}

	if len(page.Facts) == limit {
		page.Facts = page.Facts[:limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{RowNum: page.Facts[len(page.Facts)-1].RowNum})
	}
	return page, nil
}
