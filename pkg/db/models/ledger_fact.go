package models

import (
	"time"

	"github.com/angelmondragon/palletflow/pkg/enums"
)

// LedgerFact records an immutable action taken on a pallet.
type LedgerFact struct {
	RowNum         int64            `gorm:"column:row_num;primaryKey;autoIncrement" json:"row_num"`
	Timestamp      time.Time        `gorm:"column:timestamp;not null" json:"timestamp"`
	ActionType     enums.ActionType `gorm:"column:action_type;not null" json:"action_type" validate:"required,action_type"`
	PalletGRN      string           `gorm:"column:pallet_grn" json:"pallet_grn"`
	PalletID       string           `gorm:"column:pallet_id;not null;index" json:"pallet_id" validate:"required"`
	GRNID          string           `gorm:"column:grn_id;not null" json:"grn_id" validate:"required"`
	SKUID          string           `gorm:"column:sku_id" json:"sku_id"`
	SKUDescription string           `gorm:"column:sku_description" json:"sku_description"`
	BatchNo        string           `gorm:"column:batch_no" json:"batch_no"`
	QtyChange      int64            `gorm:"column:qty_change;not null;default:0" json:"qty_change"`
	Status         string           `gorm:"column:status" json:"status"`
}

func (LedgerFact) TableName() string { return "pallet_transaction_ledger" }
