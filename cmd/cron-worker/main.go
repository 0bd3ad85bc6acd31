package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/palletflow/internal/cron"
	"github.com/angelmondragon/palletflow/internal/pipeline"
	"github.com/angelmondragon/palletflow/pkg/config"
	"github.com/angelmondragon/palletflow/pkg/lock"
	"github.com/angelmondragon/palletflow/pkg/logger"
	"github.com/angelmondragon/palletflow/pkg/metrics"
	"github.com/angelmondragon/palletflow/pkg/redis"
)

const lockKeyFormat = "cron-worker:%s:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	stores, err := pipeline.OpenStores(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open store", err)
		os.Exit(1)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logg.Error(context.Background(), "error closing store", err)
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	runner, err := pipeline.Build(cfg, logg, stores, redisClient, metrics.NewPipelineMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		logg.Error(context.Background(), "failed to build pipeline runner", err)
		os.Exit(1)
	}

	pipelineJob, err := cron.NewPipelineJob(logg, runner)
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline job", err)
		os.Exit(1)
	}
	rebuildJob, err := cron.NewRebuildJob(logg, runner)
	if err != nil {
		logg.Error(context.Background(), "failed to create rebuild job", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	pollService, err := newSchedule(cfg, logg, redisClient, jobMetrics, "poll", cfg.Pipeline.PollInterval, true, pipelineJob)
	if err != nil {
		logg.Error(context.Background(), "failed to create poll schedule", err)
		os.Exit(1)
	}
	rebuildService, err := newSchedule(cfg, logg, redisClient, jobMetrics, "rebuild", cfg.Pipeline.RebuildInterval, false, rebuildJob)
	if err != nil {
		logg.Error(context.Background(), "failed to create rebuild schedule", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"backend":     cfg.Store.Backend,
	})
	logg.Info(ctx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return pollService.Run(groupCtx) })
	group.Go(func() error { return rebuildService.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// newSchedule wraps job in its own cron service. Each schedule gets a distinct
// lock key so the poll and rebuild cadences never block each other. Polling
// starts immediately; the rebuild waits a full interval after a deploy.
func newSchedule(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	jobMetrics *metrics.CronJobMetrics,
	name string,
	interval time.Duration,
	runOnStart bool,
	job cron.Job,
) (*cron.Service, error) {
	var scheduleLock lock.Lock = lock.NewLocal()
	if redisClient != nil {
		redisLock, err := lock.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env, name)), 0)
		if err != nil {
			return nil, err
		}
		scheduleLock = redisLock
	}
	return cron.NewService(cron.ServiceParams{
		Schedule:   name,
		Logger:     logg,
		Registry:   cron.NewRegistry(job),
		Lock:       scheduleLock,
		Metrics:    jobMetrics,
		Interval:   interval,
		RunOnStart: runOnStart,
	})
}

func lockKey(env, schedule string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env, schedule)
}
