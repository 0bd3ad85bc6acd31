package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/palletflow/internal/sheetstore"
	"github.com/angelmondragon/palletflow/pkg/config"
	"github.com/angelmondragon/palletflow/pkg/db"
	"github.com/angelmondragon/palletflow/pkg/logger"
	"github.com/angelmondragon/palletflow/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

var errUsage = errors.New("usage")

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|init-workbook")
	flag.StringVar(&opts.dir, "dir", "", "migrations root holding one directory per driver; empty uses the embedded set for up/down/status/version and pkg/migrate/migrations for create/validate")
	flag.StringVar(&opts.name, "name", "", "migration name (create)")
	flag.StringVar(&opts.version, "version", "", "target version YYYYMMDDHHMMSS (version)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"cmd":     opts.cmd,
		"backend": cfg.Store.Backend,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		logg.Error(ctx, "migrate command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate command complete")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	switch opts.cmd {
	case "init-workbook":
		return initWorkbook(cfg)
	case "create":
		return createMigration(opts)
	case "validate":
		if err := migrate.ValidateTree(sourceRoot(opts)); err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	case "up", "down", "status", "version":
		return applyMigrations(ctx, cfg, logg, opts)
	default:
		return fmt.Errorf("%w: unknown -cmd %q", errUsage, opts.cmd)
	}
}

func sourceRoot(opts options) string {
	if opts.dir != "" {
		return opts.dir
	}
	return migrate.DefaultDir
}

func initWorkbook(cfg *config.Config) error {
	if !cfg.Store.UsesWorkbook() {
		return fmt.Errorf("%w: init-workbook requires %s=%s", errUsage, config.EnvStoreBackend, config.StoreBackendXLSX)
	}
	if err := sheetstore.Init(cfg.Store.WorkbookPath, sheetstore.SheetsFrom(cfg.Store)); err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	fmt.Println("created workbook:", cfg.Store.WorkbookPath)
	return nil
}

func createMigration(opts options) error {
	if opts.name == "" {
		return fmt.Errorf("%w: -name is required for create", errUsage)
	}
	paths, err := migrate.CreatePair(sourceRoot(opts), opts.name, time.Now())
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Println("created migration:", path)
	}
	return nil
}

func applyMigrations(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	if !cfg.Store.UsesSQL() {
		return fmt.Errorf("%w: store backend %q has no SQL migrations", errUsage, cfg.Store.Backend)
	}
	if opts.cmd == "version" && opts.version == "" {
		return fmt.Errorf("%w: -version is required for version", errUsage)
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	if opts.cmd == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, client.Driver(), opts.dir, opts.version)
	}
	return migrate.Run(ctx, sqlDB, client.Driver(), opts.dir, opts.cmd)
}
