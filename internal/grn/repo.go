package grn

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for GRN entries.
type Repository interface {
	Store
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.GRNEntry) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a GRN repository bound to the provided database.
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
	cols, err := schema.ResolveSQL(ctx, r.db, &models.GRNEntry{}, schema.GRNMapping)
	if err != nil {
		return Table{}, err
	}
	var entries []models.GRNEntry
	if err := r.db.WithContext(ctx).
		Order("grn_id ASC").
		Find(&entries).Error; err != nil {
		return Table{}, err
	}
	for i := range entries {
		entries[i].RowNum = int64(i + 1)
	}
	return Table{Columns: cols, Entries: entries}, nil
}

func (r *repository) UpdateStatus(ctx context.Context, grnID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&models.GRNEntry{}).
		Where("grn_id = ?", grnID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Create(ctx context.Context, entry *models.GRNEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
