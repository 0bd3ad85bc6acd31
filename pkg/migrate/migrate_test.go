package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/angelmondragon/palletflow/pkg/config"
)

func TestPalletMigrationsContainSchema(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			matches, err := filepath.Glob(filepath.Join("migrations", driver, "*_create_pallet_tables.sql"))
			if err != nil {
				t.Fatalf("glob migrations: %v", err)
			}
			if len(matches) == 0 {
				t.Fatalf("no pallet migration file found")
			}

			data, err := os.ReadFile(matches[0])
			if err != nil {
				t.Fatalf("read migration file: %v", err)
			}
			content := string(data)

			checks := []string{
				"CREATE TABLE IF NOT EXISTS pallet_builds",
				"CREATE TABLE IF NOT EXISTS pallet_transaction_ledger",
				"CREATE TABLE IF NOT EXISTS pallet_status",
				"CREATE TABLE IF NOT EXISTS grn_entries",
				"CREATE UNIQUE INDEX IF NOT EXISTS idx_pallet_transaction_ledger_built_unique",
				"WHERE action_type = 'Built'",
				"DROP TABLE IF EXISTS pallet_builds",
			}
			for _, sub := range checks {
				if !strings.Contains(content, sub) {
					t.Errorf("missing expected statement %q", sub)
				}
			}
		})
	}
}

func TestValidateTreeAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateTree("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ValidateDir(dir); err == nil {
		t.Fatal("expected filename validation error")
	}
}

func TestCreatePairWritesEveryDriver(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	paths, err := CreatePair(root, "Add Location Index!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(paths) != len(Drivers) {
		t.Fatalf("expected %d files, got %v", len(Drivers), paths)
	}
	for _, p := range paths {
		if filepath.Base(p) != "20260302083000_add_location_index.sql" {
			t.Fatalf("unexpected filename %s", p)
		}
	}
	if err := ValidateTree(root); err != nil {
		t.Fatalf("generated migrations should validate: %v", err)
	}
	if _, err := CreatePair(root, "add location index", now); err == nil {
		t.Fatal("expected existing migration to be rejected")
	}
}

func TestValidateTreeDetectsDriftBetweenDrivers(t *testing.T) {
	root := t.TempDir()
	if _, err := CreatePair(root, "first", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("create: %v", err)
	}
	extra := filepath.Join(DirFor(root, "sqlite"), "20260305000000_sqlite_only.sql")
	if err := os.WriteFile(extra, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := ValidateTree(root)
	if err == nil || !strings.Contains(err.Error(), "20260305000000") {
		t.Fatalf("expected drift error naming the extra version, got %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	cases := map[string]string{"": "postgres", "postgres": "postgres", "sqlite": "sqlite3"}
	for driver, want := range cases {
		got, err := DialectFor(driver)
		if err != nil {
			t.Fatalf("DialectFor(%q): %v", driver, err)
		}
		if got != want {
			t.Fatalf("DialectFor(%q) = %s, want %s", driver, got, want)
		}
	}
	if _, err := DialectFor("mysql"); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestUpAppliesEmbeddedSQLiteMigrations(t *testing.T) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Up(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("up: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO pallet_transaction_ledger ("timestamp", action_type, pallet_id, grn_id) VALUES (CURRENT_TIMESTAMP, 'Built', 'P1', 'G1')`); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO pallet_transaction_ledger ("timestamp", action_type, pallet_id, grn_id) VALUES (CURRENT_TIMESTAMP, 'Putaway', 'P1', 'G1')`); err != nil {
		t.Fatalf("non-built fact should not hit the unique index: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO pallet_transaction_ledger ("timestamp", action_type, pallet_id, grn_id) VALUES (CURRENT_TIMESTAMP, 'Built', 'P1', 'G1')`); err == nil {
		t.Fatal("expected duplicate built fact to be rejected")
	}
}

func TestAutoRunEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want bool
	}{
		{name: "flag off", cfg: config.Config{App: config.AppConfig{Env: "dev"}}, want: false},
		{name: "dev postgres", cfg: config.Config{App: config.AppConfig{Env: "dev"}, DB: config.DBConfig{Driver: "postgres"}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}, want: true},
		{name: "prod postgres", cfg: config.Config{App: config.AppConfig{Env: "prod"}, DB: config.DBConfig{Driver: "postgres"}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}, want: false},
		{name: "prod sqlite", cfg: config.Config{App: config.AppConfig{Env: "prod"}, DB: config.DBConfig{Driver: "sqlite"}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}, want: true},
	}
	for _, tc := range cases {
		if got := AutoRunEnabled(&tc.cfg); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
