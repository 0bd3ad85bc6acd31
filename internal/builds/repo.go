package builds

import (
	"context"

	"github.com/angelmondragon/palletflow/internal/schema"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads build records from the pallet_builds table.
type Repository interface {
	Source
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.BuildRecord) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a build repository bound to the provided database.
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
	cols, err := schema.ResolveSQL(ctx, r.db, &models.BuildRecord{}, schema.BuildMapping)
	if err != nil {
		return Table{}, err
	}
	var records []models.BuildRecord
	if err := r.db.WithContext(ctx).
		Order("row_num ASC").
		Find(&records).Error; err != nil {
		return Table{}, err
	}
	return Table{Columns: cols, Records: records}, nil
}

// Create appends a build record. The receiving dock owns this table; the method
// exists for ingestion tooling and tests.
func (r *repository) Create(ctx context.Context, record *models.BuildRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}
