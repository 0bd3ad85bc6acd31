package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/palletflow/pkg/config"
	"github.com/angelmondragon/palletflow/pkg/db"
	"github.com/angelmondragon/palletflow/pkg/logger"
)

// AutoRunEnabled reports whether a process may migrate on startup: the flag must
// be on, and outside dev only local sqlite files qualify.
func AutoRunEnabled(cfg *config.Config) bool {
	if cfg == nil || !cfg.FeatureFlags.AutoMigrate {
		return false
	}
	return cfg.App.IsDev() || cfg.DB.Driver == config.StoreBackendSQLite
}

// AutoRun applies the embedded migrations for the configured driver when
// AutoRunEnabled allows it, logging the schema version before and after.
func AutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !AutoRunEnabled(cfg) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})
	from, err := currentVersion(sqlDB, cfg.DB.Driver)
	if err != nil {
		return err
	}
	if err := Up(ctx, sqlDB, cfg.DB.Driver); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	to, err := currentVersion(sqlDB, cfg.DB.Driver)
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"from_version": from, "to_version": to}), "schema migrated")
	return nil
}

func currentVersion(sqlDB *sql.DB, driver string) (int64, error) {
	var version int64
	err := withGoose(driver, "", func(string) error {
		v, err := goose.EnsureDBVersion(sqlDB)
		version = v
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
