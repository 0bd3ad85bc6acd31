package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/palletflow/pkg/lock"
	"github.com/angelmondragon/palletflow/pkg/logger"
	"github.com/angelmondragon/palletflow/pkg/metrics"
)

const defaultInterval = 24 * time.Hour

// ServiceParams configure one schedule.
type ServiceParams struct {
	// Schedule names the cadence in logs, metrics, and lock keys, e.g. "poll".
	Schedule string
	Logger   *logger.Logger
	Registry *Registry
	Lock     lock.Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// RunOnStart fires a cycle immediately instead of waiting one interval.
	RunOnStart bool
}

// Service runs its registry's jobs once per interval while holding Lock, so at
// most one instance across the fleet executes a given schedule at a time.
type Service struct {
	schedule   string
	logg       *logger.Logger
	registry   *Registry
	lock       lock.Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	runOnStart bool
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	s := &Service{
		schedule:   params.Schedule,
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		runOnStart: params.RunOnStart,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Run blocks until ctx is canceled. Cycle errors are logged, never returned.
func (s *Service) Run(ctx context.Context) error {
	if s.schedule != "" {
		ctx = s.logg.WithField(ctx, "schedule", s.schedule)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"interval":     s.interval.String(),
		"run_on_start": s.runOnStart,
		"jobs":         len(s.registry.Jobs()),
	}), "cron service started")

	if s.runOnStart {
		s.tick(ctx)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "cron.cycle_failed", err)
	}
}

// RunOnce executes a single locked cycle. A held lock skips the cycle without
// error; job failures do not stop later jobs and are returned together.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron.cycle_skipped")
		s.metrics.IncSkipped(s.schedule)
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", relErr)
		}
	}()

	start := time.Now()
	var (
		errs   error
		failed int
	)
	jobs := s.registry.Jobs()
	for _, job := range jobs {
		if err := s.runJob(ctx, job); err != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(jobs),
		"failed":      failed,
		"duration_ms": time.Since(start).Milliseconds(),
	}), "cron.cycle_complete")
	return errs
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)

	s.metrics.ObserveDuration(job.Name(), elapsed)
	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(job.Name())
		s.logg.Error(ctx, "cron.job_failed", err)
		return err
	}
	s.metrics.IncSuccess(job.Name())
	s.logg.Debug(ctx, "cron.job_complete")
	return nil
}
