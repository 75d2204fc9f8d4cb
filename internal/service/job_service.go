package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/embedding"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

// JobEmbedder is the part of the embedding provider the job service needs.
type JobEmbedder interface {
	EmbedJob(ctx context.Context, j *domain.Job) ([]float32, error)
	Dimension() int
}

// JobService manages job postings. When an embedder is configured, jobs are
// embedded on write; failures leave the job for the backfill.
type JobService struct {
	store    port.JobStore
	embedder JobEmbedder
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewJobService creates a new job service. embedder may be nil.
func NewJobService(store port.JobStore, embedder JobEmbedder, validate *validator.Validate, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{store: store, embedder: embedder, validate: validate, logger: logger, now: time.Now}
}

// Get returns a job by id.
func (s *JobService) Get(ctx context.Context, id string) (*domain.Job, error) {
	return s.store.GetJob(ctx, id)
}

// List returns a page of jobs.
func (s *JobService) List(ctx context.Context, skip, limit int) ([]*domain.Job, error) {
	return s.store.ListJobs(ctx, skip, listLimit(limit))
}

// Available returns the jobs open today.
func (s *JobService) Available(ctx context.Context) ([]*domain.Job, error) {
	return s.store.FindAvailableJobs(ctx, s.now())
}

// ByCategory returns jobs in category.
func (s *JobService) ByCategory(ctx context.Context, category string) ([]*domain.Job, error) {
	return s.store.FindJobsByCategory(ctx, category)
}

// Create validates and stores a new job.
func (s *JobService) Create(ctx context.Context, in JobInput) (*domain.Job, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	job := in.toDomain()
	s.tryEmbed(ctx, job)

	created, err := s.store.CreateJob(ctx, job)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job created", zap.String("job_id", created.ID), zap.Bool("embedded", created.HasEmbedding()))
	return created, nil
}

// Update applies patch to the stored job. A change to any text that feeds
// the embedding drops the old vector.
func (s *JobService) Update(ctx context.Context, id string, patch JobPatch) (*domain.Job, error) {
	if err := validateInput(s.validate, patch); err != nil {
		return nil, err
	}
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	before := embedding.JobText(job)
	patch.apply(job)
	if embedding.JobText(job) != before {
		job.Embedding = nil
		s.tryEmbed(ctx, job)
	}
	return s.store.UpdateJob(ctx, id, job)
}

// SetEmbedding stores a precomputed vector for a job.
func (s *JobService) SetEmbedding(ctx context.Context, id string, vec []float32) (*domain.Job, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: embedding must not be empty", port.ErrInvalidInput)
	}
	if s.embedder != nil {
		if dim := s.embedder.Dimension(); dim > 0 && len(vec) != dim {
			return nil, fmt.Errorf("%w: embedding has %d dimensions, want %d", port.ErrInvalidInput, len(vec), dim)
		}
	}
	if err := s.store.UpdateJobEmbedding(ctx, id, vec); err != nil {
		return nil, err
	}
	return s.store.GetJob(ctx, id)
}

// Delete removes a job, failing with ErrJobNotFound when absent.
func (s *JobService) Delete(ctx context.Context, id string) error {
	ok, err := s.store.DeleteJob(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete %s: %w", id, port.ErrJobNotFound)
	}
	s.logger.Info("job deleted", zap.String("job_id", id))
	return nil
}

func (s *JobService) tryEmbed(ctx context.Context, job *domain.Job) {
	if s.embedder == nil {
		return
	}
	vec, err := s.embedder.EmbedJob(ctx, job)
	if err != nil {
		level := s.logger.Warn
		if errors.Is(err, context.Canceled) {
			level = s.logger.Debug
		}
		level("job embedding deferred to backfill", zap.String("title", job.Title), zap.Error(err))
		return
	}
	job.Embedding = vec
}
