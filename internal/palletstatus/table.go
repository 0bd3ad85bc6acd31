package palletstatus

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/types"
)

// Store holds the materialized status rows. Rows are created elsewhere; the
// store only reads and updates them.
type Store interface {
	List(ctx context.Context) (Table, error)
	// Update writes the given rows back in one bounded write. Rows are matched
	// by pallet id (and RowNum where the backend is positional).
	Update(ctx context.Context, rows []models.PalletStatus) error
}

// Table is a full read of the status view.
type Table struct {
	Columns schema.Columns
	Rows    []models.PalletStatus
	// Invalid maps a RowNum to its first undecodable cell.
	Invalid map[int64]error
}

// RowError returns the decode failure recorded for rowNum, if any.
func (t Table) RowError(rowNum int64) error {
	return t.Invalid[rowNum]
}

// Find returns the row for palletID by exact key match.
func (t Table) Find(palletID string) (models.PalletStatus, bool) {
	for _, row := range t.Rows {
		if types.KeysEqual(row.PalletID, palletID) {
			return row, true
		}
	}
	return models.PalletStatus{}, false
}
