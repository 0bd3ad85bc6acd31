package schema

import (
	"context"
	"strings"

	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"gorm.io/gorm"
)

// Mapping binds header names to the SQL columns that back them.
type Mapping map[string]string

var (
	BuildMapping = Mapping{
		ColGRNID: "grn_id", ColPalletID: "pallet_id", ColPalletGRN: "pallet_grn", ColTimestamp: "timestamp",
		ColSKUID: "sku_id", ColSKUDescription: "sku_description", ColBatchNumber: "batch_number",
		ColQuantityBoxes: "quantity_boxes", ColExpiryDate: "expiry_date", ColVehicleCompleted: "vehicle_completed",
	}
	LedgerMapping = Mapping{
		ColTimestamp: "timestamp", ColActionType: "action_type", ColLedgerKey: "pallet_grn", ColPalletID: "pallet_id",
		ColGRNID: "grn_id", ColSKUID: "sku_id", ColSKUDescription: "sku_description", ColBatchNo: "batch_no",
		ColQtyChange: "qty_change", ColStatus: "status",
	}
	StatusMapping = Mapping{
		ColPalletID: "pallet_id", ColOccupancyStatus: "occupancy_status", ColGRNID: "grn_id", ColSKUID: "sku_id",
		ColSKUDescription: "sku_description", ColExpiryDate: "expiry_date", ColBatchNumber: "batch_number",
		ColLocationID: "location_id", ColCurrentQty: "current_qty", ColLastUpdated: "last_ledger_at",
		ColAssignmentStatus: "assignment_status", ColStatusUpdateTimestamp: "materialized_at",
	}
	GRNMapping = Mapping{ColGRNID: "grn_id", ColStatus: "status"}
)

// ResolveSQL asks the database which mapped columns exist on model's table and
// returns the matching header names.
func ResolveSQL(ctx context.Context, db *gorm.DB, model any, m Mapping) (Columns, error) {
	types, err := db.WithContext(ctx).Migrator().ColumnTypes(model)
	if err != nil {
		return nil, pferrors.Wrap(pferrors.CodeDependency, err, "read table columns")
	}
	present := make(map[string]struct{}, len(types))
	for _, ct := range types {
		present[strings.ToLower(ct.Name())] = struct{}{}
	}
	cols := Columns{}
	for header, column := range m {
		if _, ok := present[column]; ok {
			cols[header] = struct{}{}
		}
	}
	return cols, nil
}
