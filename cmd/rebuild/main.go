package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/palletflow/internal/pipeline"
	"github.com/angelmondragon/palletflow/pkg/config"
	"github.com/angelmondragon/palletflow/pkg/logger"
	"github.com/angelmondragon/palletflow/pkg/redis"
)

// rebuild re-derives every pallet status row from the full ledger and build
// history and prints the rebuild counts as JSON.
func main() {
	logg := logger.New(logger.Options{ServiceName: "rebuild"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)
	cfg.Service.Kind = "rebuild"

	logg = logger.New(logger.Options{
		ServiceName: "rebuild",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"backend": cfg.Store.Backend,
	})

	os.Exit(run(ctx, cfg, logg))
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) int {
	stores, err := pipeline.OpenStores(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: store", err)
		return 1
	}
	defer stores.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "resource not working: redis", err)
			return 1
		}
		defer redisClient.Close()
	}

	runner, err := pipeline.Build(cfg, logg, stores, redisClient, nil)
	if err != nil {
		logg.Error(ctx, "resource not working: pipeline runner", err)
		return 1
	}

	counts, err := runner.Rebuild(ctx)
	if err != nil {
		logg.Error(ctx, "rebuild did not complete", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(counts)
	return 0
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
