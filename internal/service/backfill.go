package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

// Backfill triggers.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

// BatchJobEmbedder embeds several jobs at once.
type BatchJobEmbedder interface {
	EmbedJobs(ctx context.Context, jobs []*domain.Job) ([][]float32, error)
}

// BackfillService computes embeddings for jobs that lack one. Only one run
// executes at a time.
type BackfillService struct {
	store     port.JobStore
	embedder  BatchJobEmbedder
	tracker   *RunTracker
	limiter   *rate.Limiter
	batchSize int
	logger    *zap.Logger
	running   atomic.Bool
}

// NewBackfillService creates a backfill service. ratePerSec <= 0 disables
// throttling; it limits jobs embedded per second, not batches.
func NewBackfillService(store port.JobStore, embedder BatchJobEmbedder, tracker *RunTracker, batchSize int, ratePerSec float64, logger *zap.Logger) *BackfillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), batchSize)
	}
	return &BackfillService{
		store:     store,
		embedder:  embedder,
		tracker:   tracker,
		limiter:   limiter,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Tracker exposes the run tracker.
func (s *BackfillService) Tracker() *RunTracker {
	return s.tracker
}

// Start launches a run in the background and returns its id. It fails with
// ErrBackfillRunning while another run is in progress.
func (s *BackfillService) Start(ctx context.Context, trigger string) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", port.ErrBackfillRunning
	}
	runID, err := s.begin(ctx, trigger)
	if err != nil {
		s.running.Store(false)
		return "", err
	}

	go func() {
		defer s.running.Store(false)
		s.run(context.WithoutCancel(ctx), runID, 0)
	}()
	return runID, nil
}

// Run executes a run synchronously, embedding at most limit jobs
// (0 = all), and returns its final status.
func (s *BackfillService) Run(ctx context.Context, trigger string, limit int) (*RunStatus, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, port.ErrBackfillRunning
	}
	defer s.running.Store(false)

	runID, err := s.begin(ctx, trigger)
	if err != nil {
		return nil, err
	}
	s.run(ctx, runID, limit)
	status, _ := s.tracker.Get(runID)
	return status, nil
}

func (s *BackfillService) begin(ctx context.Context, trigger string) (string, error) {
	total, err := s.store.CountJobsWithoutEmbedding(ctx)
	if err != nil {
		return "", fmt.Errorf("count jobs without embedding: %w", err)
	}
	runID := uuid.NewString()
	s.tracker.Create(runID, trigger, total)
	s.logger.Info("embedding backfill started",
		zap.String("run_id", runID), zap.String("trigger", trigger), zap.Int("pending", total))
	return runID, nil
}

func (s *BackfillService) run(ctx context.Context, runID string, limit int) {
	var (
		cursor   string
		embedded int
		failed   int
	)

	fail := func(err error) {
		s.logger.Error("embedding backfill failed", zap.String("run_id", runID), zap.Error(err))
		s.tracker.Update(runID, func(r *RunStatus) {
			r.Status = RunError
			r.Error = err.Error()
		})
	}

	for {
		size := s.batchSize
		if limit > 0 {
			if remaining := limit - embedded - failed; remaining <= 0 {
				break
			} else if remaining < size {
				size = remaining
			}
		}

		batch, err := s.store.ListJobsWithoutEmbedding(ctx, cursor, size)
		if err != nil {
			fail(fmt.Errorf("list jobs: %w", err))
			return
		}
		if len(batch) == 0 {
			break
		}
		cursor = batch[len(batch)-1].ID

		if err := s.limiter.WaitN(ctx, len(batch)); err != nil {
			fail(err)
			return
		}

		vecs, err := s.embedder.EmbedJobs(ctx, batch)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				fail(err)
				return
			}
			// Retry one by one so a single bad job does not sink the batch.
			vecs = s.embedEach(ctx, batch)
		}

		for i, job := range batch {
			if vecs[i] == nil {
				failed++
				continue
			}
			if err := s.store.UpdateJobEmbedding(ctx, job.ID, vecs[i]); err != nil {
				s.logger.Warn("saving job embedding failed", zap.String("job_id", job.ID), zap.Error(err))
				failed++
				continue
			}
			embedded++
		}

		last := batch[len(batch)-1]
		s.tracker.Update(runID, func(r *RunStatus) {
			r.Embedded = embedded
			r.Failed = failed
			r.Current = last.Title
		})
	}

	s.tracker.Update(runID, func(r *RunStatus) {
		r.Status = RunComplete
		r.Current = ""
	})
	s.logger.Info("embedding backfill finished",
		zap.String("run_id", runID), zap.Int("embedded", embedded), zap.Int("failed", failed))
}

func (s *BackfillService) embedEach(ctx context.Context, batch []*domain.Job) [][]float32 {
	out := make([][]float32, len(batch))
	for i, job := range batch {
		vecs, err := s.embedder.EmbedJobs(ctx, []*domain.Job{job})
		if err != nil {
			s.logger.Warn("embedding job failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		out[i] = vecs[0]
	}
	return out
}
