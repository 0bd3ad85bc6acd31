package grn

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"github.com/angelmondragon/palletflow/pkg/types"
)

// Store holds goods-receipt note entries.
type Store interface {
	List(ctx context.Context) (Table, error)
	// UpdateStatus sets the status of the entry keyed by grnID.
	UpdateStatus(ctx context.Context, grnID, status string) error
}

// Table is a full read of the GRN entries.
type Table struct {
	Columns schema.Columns
	Entries []models.GRNEntry
}

// Find returns the entry for grnID.
func (t Table) Find(grnID string) (models.GRNEntry, bool) {
	for _, entry := range t.Entries {
		if types.KeysEqual(entry.GRNID, grnID) {
			return entry, true
		}
	}
	return models.GRNEntry{}, false
}
