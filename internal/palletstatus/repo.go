package palletstatus

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for pallet status rows.
type Repository interface {
	Store
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.PalletStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pallet status repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) (Table, error) {
	cols, err := schema.ResolveSQL(ctx, r.db, &models.PalletStatus{}, schema.StatusMapping)
	if err != nil {
		return Table{}, err
	}
	var rows []models.PalletStatus
	if err := r.db.WithContext(ctx).
		Order("pallet_id ASC").
		Find(&rows).Error; err != nil {
		return Table{}, err
	}
	for i := range rows {
		rows[i].RowNum = int64(i + 1)
	}
	return Table{Columns: cols, Rows: rows}, nil
}

func (r *repository) Update(ctx context.Context, rows []models.PalletStatus) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Model(&models.PalletStatus{}).
				Where("pallet_id = ?", row.PalletID).
				Updates(updateColumns(row)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Create seeds a status row. Allocation tooling owns row creation; the method
// exists for that tooling and tests.
func (r *repository) Create(ctx context.Context, row *models.PalletStatus) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func updateColumns(row models.PalletStatus) map[string]any {
	return map[string]any{
		"occupancy_status":  row.OccupancyStatus,
		"grn_id":            row.GRNID,
		"sku_id":            row.SKUID,
		"sku_description":   row.SKUDescription,
		"expiry_date":       row.ExpiryDate,
		"batch_number":      row.BatchNumber,
		"location_id":       row.LocationID,
		"current_qty":       row.CurrentQty,
		"last_ledger_at":    row.LastLedgerAt,
		"assignment_status": row.AssignmentStatus,
		"materialized_at":   row.MaterializedAt,
	}
}
