package models

import "time"

// BuildRecord is one physical pallet build reported by the receiving dock. Rows are
// append-only and RowNum (insertion order) is the only recency signal.
type BuildRecord struct {
	RowNum           int64      `gorm:"column:row_num;primaryKey;autoIncrement"`
	GRNID            string     `gorm:"column:grn_id;not null"`
	PalletID         string     `gorm:"column:pallet_id;not null;index"`
	PalletGRN        string     `gorm:"column:pallet_grn;not null"`
	Timestamp        *time.Time `gorm:"column:timestamp"`
	SKUID            string     `gorm:"column:sku_id"`
	SKUDescription   string     `gorm:"column:sku_description"`
	BatchNumber      string     `gorm:"column:batch_number"`
	QuantityBoxes    int64      `gorm:"column:quantity_boxes;not null;default:0"`
	ExpiryDate       string     `gorm:"column:expiry_date"`
	VehicleCompleted bool       `gorm:"column:vehicle_completed;not null;default:false"`
}

func (BuildRecord) TableName() string { return "pallet_builds" }
