package builds

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/types"
)

// Source reads the append-only build records.
type Source interface {
	List(ctx context.Context) (Table, error)
}

// Table is a full read of the build source in row order.
type Table struct {
	Columns schema.Columns
	Records []models.BuildRecord
	// Invalid maps a RowNum to its first undecodable cell. Such records are
	// still listed with that cell zeroed.
	Invalid map[int64]error
}

// RowError returns the decode failure recorded for rowNum, if any.
func (t Table) RowError(rowNum int64) error {
	return t.Invalid[rowNum]
}

// Latest returns the most recently appended record.
func (t Table) Latest() (models.BuildRecord, bool) {
	if len(t.Records) == 0 {
		return models.BuildRecord{}, false
	}
	return t.Records[len(t.Records)-1], true
}

// LatestFor returns the most recent record for palletID.
func (t Table) LatestFor(palletID string) (models.BuildRecord, bool) {
	for i := len(t.Records) - 1; i >= 0; i-- {
		if types.KeysEqual(t.Records[i].PalletID, palletID) {
			return t.Records[i], true
		}
	}
	return models.BuildRecord{}, false
}

// LatestByPallet folds the table forward so the last record per pallet wins.
func (t Table) LatestByPallet() map[string]models.BuildRecord {
	out := make(map[string]models.BuildRecord, len(t.Records))
	for _, rec := range t.Records {
		key := types.NormalizeKey(rec.PalletID)
		if key == "" {
			continue
		}
		out[key] = rec
	}
	return out
}
