package ledger

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/enums"
	"github.com/angelmondragon/palletflow/pkg/types"
)

// Reader reads the full transaction ledger.
type Reader interface {
	List(ctx context.Context) (Table, error)
}

// Store is the append-only transaction ledger.
type Store interface {
	Reader
	// Append writes fact as the new last row and sets its RowNum. A store that
	// enforces the Built uniqueness key returns ErrDuplicateFact on collision.
	Append(ctx context.Context, fact *models.LedgerFact) error
}

// Table is a full read of the ledger in row order.
type Table struct {
	Columns schema.Columns
	Facts   []models.LedgerFact
	// Invalid maps a RowNum to its first undecodable cell.
	Invalid map[int64]error
}

// RowError returns the decode failure recorded for rowNum, if any.
func (t Table) RowError(rowNum int64) error {
	return t.Invalid[rowNum]
}

// HasBuilt reports whether a Built fact already exists for the pallet/GRN pair.
func (t Table) HasBuilt(palletID, grnID string) bool {
	for _, fact := range t.Facts {
		if fact.ActionType != enums.ActionTypeBuilt {
			continue
		}
		if types.KeysEqual(fact.PalletID, palletID) && types.KeysEqual(fact.GRNID, grnID) {
			return true
		}
	}
	return false
}

// LatestFor returns the most recent fact of any action type for palletID.
func (t Table) LatestFor(palletID string) (models.LedgerFact, bool) {
	for i := len(t.Facts) - 1; i >= 0; i-- {
		if types.KeysEqual(t.Facts[i].PalletID, palletID) {
			return t.Facts[i], true
		}
	}
	return models.LedgerFact{}, false
}

// LatestByPallet folds the ledger forward so the last fact per pallet wins.
func (t Table) LatestByPallet() map[string]models.LedgerFact {
	out := make(map[string]models.LedgerFact, len(t.Facts))
	for _, fact := range t.Facts {
		key := types.NormalizeKey(fact.PalletID)
		if key == "" {
			continue
		}
		out[key] = fact
	}
	return out
}
