package models

import (
	"time"

	"github.com/angelmondragon/palletflow/pkg/enums"
)

// PalletStatus is the materialized current state of one pallet. Rows are created by
// allocation tooling; the pipeline only ever updates them.
type PalletStatus struct {
	PalletID         string                 `gorm:"column:pallet_id;primaryKey"`
	OccupancyStatus  enums.OccupancyStatus  `gorm:"column:occupancy_status"`
	GRNID            string                 `gorm:"column:grn_id"`
	SKUID            string                 `gorm:"column:sku_id"`
	SKUDescription   string                 `gorm:"column:sku_description"`
	ExpiryDate       string                 `gorm:"column:expiry_date"`
	BatchNumber      string                 `gorm:"column:batch_number"`
	LocationID       string                 `gorm:"column:location_id"`
	CurrentQty       int64                  `gorm:"column:current_qty;not null;default:0"`
	LastLedgerAt     *time.Time             `gorm:"column:last_ledger_at"`
	AssignmentStatus enums.AssignmentStatus `gorm:"column:assignment_status"`
	MaterializedAt   *time.Time             `gorm:"column:materialized_at"`

	// RowNum is the 1-based data row in sheet-backed stores.
	RowNum int64 `gorm:"-"`
}

func (PalletStatus) TableName() string { return "pallet_status" }

// SameState reports whether two rows carry the same materialized values, ignoring
// the materialization stamp and row position.
func (p PalletStatus) SameState(other PalletStatus) bool {
	return p.PalletID == other.PalletID &&
		p.OccupancyStatus == other.OccupancyStatus &&
		p.GRNID == other.GRNID &&
		p.SKUID == other.SKUID &&
		p.SKUDescription == other.SKUDescription &&
		p.ExpiryDate == other.ExpiryDate &&
		p.BatchNumber == other.BatchNumber &&
		p.LocationID == other.LocationID &&
		p.CurrentQty == other.CurrentQty &&
		sameInstant(p.LastLedgerAt, other.LastLedgerAt) &&
		p.AssignmentStatus == other.AssignmentStatus
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
