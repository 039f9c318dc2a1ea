// Package scheduler keeps the price cache warm on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"AssetDash/internal/model"
)

// Warmer fills the cache for a set of assets.
type Warmer interface {
	Warm(ctx context.Context, assets []model.Asset, rng model.DateRange) error
	Today() time.Time
}

// Scheduler runs the warm task on its cron expression.
type Scheduler struct {
	Cron   *cron.Cron
	Warmer Warmer
	Assets []model.Asset
	Span   int // calendar days warmed, ending today
	Ctx    context.Context
}

// NewScheduler creates a Scheduler. Cron expressions carry a seconds field.
func NewScheduler(ctx context.Context, w Warmer, assets []model.Asset, span int) *Scheduler {
	logger := cronLogger{log.Logger.With().Str("component", "scheduler").Logger()}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Warmer: w,
		Assets: assets,
		Span:   span,
		Ctx:    ctx,
	}
}

// Register adds the warm task.
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.warmTask); err != nil {
		return fmt.Errorf("register warm task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running warm to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow warms the cache immediately.
func (s *Scheduler) RunNow() error {
	today := s.Warmer.Today()
	rng := model.DateRange{Start: today.AddDate(0, 0, -s.Span), End: today}
	start := time.Now()
	if err := s.Warmer.Warm(s.Ctx, s.Assets, rng); err != nil {
		return fmt.Errorf("warm %s: %w", rng, err)
	}
	log.Info().
		Int("assets", len(s.Assets)).
		Stringer("range", rng).
		Dur("elapsed", time.Since(start)).
		Msg("cache warmed")
	return nil
}

func (s *Scheduler) warmTask() {
	if err := s.RunNow(); err != nil {
		log.Error().Err(err).Msg("warm task failed")
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
