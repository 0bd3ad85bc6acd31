package schema

import (
	"sort"
	"strings"

	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
)

// Header names shared by the warehouse tables.
const (
	ColPalletID              = "Pallet_ID"
	ColGRNID                 = "GRN_ID"
	ColPalletGRN             = "Pallet_GRN"
	ColTimestamp             = "Timestamp"
	ColSKUID                 = "SKU_ID"
	ColSKUDescription        = "SKU_Description"
	ColBatchNumber           = "Batch_Number"
	ColQuantityBoxes         = "Quantity_Boxes"
	ColExpiryDate            = "Expiry_Date"
	ColVehicleCompleted      = "Vehicle_Completed"
	ColActionType            = "Action_Type"
	ColLedgerKey             = "Pallet ID_GRN ID"
	ColBatchNo               = "Batch_No"
	ColQtyChange             = "Qty_Change"
	ColStatus                = "Status"
	ColOccupancyStatus       = "Occupancy_Status"
	ColLocationID            = "Location_ID"
	ColCurrentQty            = "Current_Qty"
	ColLastUpdated           = "Last_Updated"
	ColAssignmentStatus      = "Assignment_Status"
	ColStatusUpdateTimestamp = "Status_Update_Timestamp"
)

// Table describes one collaborator table and its full header catalogue.
type Table struct {
	Name    string
	Columns []string
}

var (
	Build = Table{Name: "pallet_builds", Columns: []string{
		ColGRNID, ColPalletID, ColPalletGRN, ColTimestamp, ColSKUID, ColSKUDescription,
		ColBatchNumber, ColQuantityBoxes, ColExpiryDate, ColVehicleCompleted,
	}}
	Ledger = Table{Name: "pallet_transaction_ledger", Columns: []string{
		ColTimestamp, ColActionType, ColLedgerKey, ColPalletID, ColGRNID, ColSKUID,
		ColSKUDescription, ColBatchNo, ColQtyChange, ColStatus,
	}}
	Status = Table{Name: "pallet_status", Columns: []string{
		ColPalletID, ColOccupancyStatus, ColGRNID, ColSKUID, ColSKUDescription, ColExpiryDate,
		ColBatchNumber, ColLocationID, ColCurrentQty, ColLastUpdated, ColAssignmentStatus,
		ColStatusUpdateTimestamp,
	}}
	GRN = Table{Name: "grn_entries", Columns: []string{ColGRNID, ColStatus}}
)

// Columns each component needs before it reads or writes anything.
var (
	WriterBuildColumns        = []string{ColPalletID, ColGRNID, ColPalletGRN, ColTimestamp}
	WriterLedgerColumns       = Ledger.Columns
	MaterializerLedgerColumns = []string{ColTimestamp, ColActionType, ColPalletID, ColGRNID, ColSKUID, ColSKUDescription, ColBatchNo, ColQtyChange}
	MaterializerBuildColumns  = []string{ColPalletID, ColExpiryDate}
	MaterializerStatusColumns = Status.Columns
	PropagatorBuildColumns    = []string{ColPalletID, ColGRNID, ColVehicleCompleted}
	PropagatorGRNColumns      = GRN.Columns
)

// Columns is the set of header names resolved from a table's first row.
type Columns map[string]struct{}

// NewColumns builds a column set, ignoring blank names and surrounding spaces.
func NewColumns(names ...string) Columns {
	c := Columns{}
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			c[trimmed] = struct{}{}
		}
	}
	return c
}

// All returns a column set holding the whole catalogue of t.
func (t Table) All() Columns {
	return NewColumns(t.Columns...)
}

func (c Columns) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Require returns a SCHEMA_ERROR listing every name absent from c.
func (c Columns) Require(table string, names ...string) error {
	var missing []string
	for _, name := range names {
		if !c.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return pferrors.New(pferrors.CodeSchema, "table "+table+" is missing required columns: "+strings.Join(missing, ", ")).
		WithDetails(map[string]any{"table": table, "missing": missing})
}
