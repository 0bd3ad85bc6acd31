package models

// GRNEntry is the goods-receipt note a pallet was received against.
type GRNEntry struct {
	GRNID  string `gorm:"column:grn_id;primaryKey"`
	Status string `gorm:"column:status"`

	RowNum int64 `gorm:"-"`
}

func (GRNEntry) TableName() string { return "grn_entries" }
