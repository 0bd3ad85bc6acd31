package pipeline

import (
	"context"
	"fmt"

	"github.com/angelmondragon/palletflow/internal/builds"
	"github.com/angelmondragon/palletflow/internal/grn"
	"github.com/angelmondragon/palletflow/internal/ledger"
	"github.com/angelmondragon/palletflow/internal/palletstatus"
	"github.com/angelmondragon/palletflow/internal/sheetstore"
	"github.com/angelmondragon/palletflow/pkg/config"
	"github.com/angelmondragon/palletflow/pkg/db"
	"github.com/angelmondragon/palletflow/pkg/lock"
	"github.com/angelmondragon/palletflow/pkg/logger"
	"github.com/angelmondragon/palletflow/pkg/metrics"
	"github.com/angelmondragon/palletflow/pkg/migrate"
	"github.com/angelmondragon/palletflow/pkg/redis"
	"gorm.io/gorm"
)

const lockName = "pallet-pipeline"

// Stores are the four tables the pipeline reads and writes.
type Stores struct {
	Builds builds.Source
	Ledger ledger.Store
	Status palletstatus.Store
	GRN    grn.Store
	// Pinger is set for SQL backends and feeds the readiness probe.
	Pinger db.Pinger
	closeFn func() error
}

// Close releases the backend connection, if any.
func (s *Stores) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// SQLStores binds every table to gorm repositories.
func SQLStores(conn *gorm.DB) *Stores {
	return &Stores{
		Builds: builds.NewRepository(conn),
		Ledger: ledger.NewRepository(conn),
		Status: palletstatus.NewRepository(conn),
		GRN:    grn.NewRepository(conn),
	}
}

// WorkbookStores binds every table to a sheet of one workbook.
func WorkbookStores(store *sheetstore.Store) *Stores {
	return &Stores{
		Builds: store.Builds(),
		Ledger: store.Ledger(),
		Status: store.Status(),
		GRN:    store.GRN(),
	}
}

// OpenStores connects to the configured backend. SQL backends apply the
// embedded migrations first when migrate.AutoRunEnabled allows it.
func OpenStores(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Stores, error) {
	if cfg.Store.UsesWorkbook() {
		store, err := sheetstore.New(cfg.Store)
		if err != nil {
			return nil, err
		}
		logg.Info(logg.WithField(ctx, "workbook", cfg.Store.WorkbookPath), "workbook store ready")
		return WorkbookStores(store), nil
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := migrate.AutoRun(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	stores := SQLStores(client.DB())
	stores.Pinger = client
	stores.closeFn = client.Close
	return stores, nil
}

// NewServices wires the three pipeline services over stores.
func NewServices(stores *Stores, opts palletstatus.Options) (ledger.Service, palletstatus.Service, grn.Service, error) {
	writer, err := ledger.NewService(stores.Builds, stores.Ledger)
	if err != nil {
		return nil, nil, nil, err
	}
	materializer, err := palletstatus.NewService(stores.Ledger, stores.Builds, stores.Status, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	propagator, err := grn.NewService(stores.Builds, stores.GRN)
	if err != nil {
		return nil, nil, nil, err
	}
	return writer, materializer, propagator, nil
}

// NewLock returns the run lock described by cfg: Redis when a client is
// available, in-process otherwise, nil when locking is disabled.
func NewLock(cfg config.PipelineConfig, client *redis.Client) (lock.Lock, error) {
	if !cfg.LockEnabled {
		return nil, nil
	}
	if client == nil {
		return lock.NewLocal(), nil
	}
	redisLock, err := lock.NewRedisLock(client, client.LockKey(lockName), cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	return redisLock, nil
}

// Build assembles a runner from configuration and opened dependencies.
func Build(cfg *config.Config, logg *logger.Logger, stores *Stores, redisClient *redis.Client, m *metrics.PipelineMetrics) (*Runner, error) {
	writer, materializer, propagator, err := NewServices(stores, palletstatus.Options{
		SkipExpiryOnEmpty: cfg.Pipeline.SkipExpiryOnEmpty,
	})
	if err != nil {
		return nil, err
	}
	runLock, err := NewLock(cfg.Pipeline, redisClient)
	if err != nil {
		return nil, err
	}
	return NewRunner(RunnerParams{
		Logger:       logg,
		Writer:       writer,
		Materializer: materializer,
		Propagator:   propagator,
		Lock:         runLock,
		Metrics:      m,
	})
}
