package ledger

import (
	"context"
	"errors"

	"github.com/angelmondragon/palletflow/internal/schema"
	pfdb "github.com/angelmondragon/palletflow/pkg/db"
	"github.com/angelmondragon/palletflow/pkg/db/models"
	"gorm.io/gorm"
)

// ErrDuplicateFact is returned by Append when the Built uniqueness key is taken.
var ErrDuplicateFact = errors.New("built fact already recorded")

// Repository manages persistence for ledger facts.
type Repository interface {
	Store
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
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
	cols, err := schema.ResolveSQL(ctx, r.db, &models.LedgerFact{}, schema.LedgerMapping)
	if err != nil {
		return Table{}, err
	}
	var facts []models.LedgerFact
	if err := r.db.WithContext(ctx).
		Order("row_num ASC").
		Find(&facts).Error; err != nil {
		return Table{}, err
	}
	return Table{Columns: cols, Facts: facts}, nil
}

func (r *repository) Append(ctx context.Context, fact *models.LedgerFact) error {
	if err := r.db.WithContext(ctx).Create(fact).Error; err != nil {
		if pfdb.IsUniqueViolation(err) {
			return ErrDuplicateFact
		}
		return err
	}
	return nil
}
