// Package scheduler runs the embedding backfill on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/port"
	"github.com/arturoeanton/launchpad-match/internal/service"
)

// Starter launches a backfill run.
type Starter interface {
	Start(ctx context.Context, trigger string) (string, error)
}

// Scheduler wraps robfig/cron and fires the backfill on every tick.
type Scheduler struct {
	cron    *cron.Cron
	starter Starter
	spec    string // cron spec, e.g. "@every 1h"
	logger  *zap.Logger
}

// New creates a scheduler for spec. An empty spec disables it.
func New(starter Starter, spec string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger{logger.Sugar()})),
		starter: starter,
		spec:    spec,
		logger:  logger,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		s.logger.Info("backfill schedule disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("backfill scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running tick to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("backfill scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	runID, err := s.starter.Start(ctx, service.TriggerSchedule)
	switch {
	case errors.Is(err, port.ErrBackfillRunning):
		s.logger.Debug("backfill already running, skipping tick")
	case err != nil:
		s.logger.Error("scheduled backfill failed to start", zap.Error(err))
	default:
		s.logger.Info("scheduled backfill started", zap.String("run_id", runID))
	}
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
