package port

import (
	"context"
	"time"

	"github.com/arturoeanton/launchpad-match/internal/domain"
)

// CandidateStore persists candidate profiles.
//
// Get returns an error wrapping ErrNotFound when the id is absent. Update does
// the same. Delete reports false with a nil error for a missing id.
type CandidateStore interface {
	GetCandidate(ctx context.Context, id string) (*domain.Candidate, error)
	ListCandidates(ctx context.Context, skip, limit int) ([]*domain.Candidate, error)
	CreateCandidate(ctx context.Context, c *domain.Candidate) (*domain.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, c *domain.Candidate) (*domain.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) (bool, error)
	FindCandidatesByLocation(ctx context.Context, location string) ([]*domain.Candidate, error)

	// UpdateCandidateEmbedding writes only the embedding columns so a
	// concurrent profile edit is not overwritten.
	UpdateCandidateEmbedding(ctx context.Context, id string, vec []float32, fingerprint string) error
}

// JobStore persists job postings.
type JobStore interface {
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListJobs(ctx context.Context, skip, limit int) ([]*domain.Job, error)
	ListAllJobs(ctx context.Context) ([]*domain.Job, error)
	CreateJob(ctx context.Context, j *domain.Job) (*domain.Job, error)
	UpdateJob(ctx context.Context, id string, j *domain.Job) (*domain.Job, error)
	DeleteJob(ctx context.Context, id string) (bool, error)
	FindJobsByCategory(ctx context.Context, category string) ([]*domain.Job, error)

	// FindAvailableJobs returns jobs whose application window is open on the
	// calendar day of asOf.
	FindAvailableJobs(ctx context.Context, asOf time.Time) ([]*domain.Job, error)

	UpdateJobEmbedding(ctx context.Context, id string, vec []float32) error

	// ListJobsWithoutEmbedding pages through jobs lacking a vector, ordered by
	// id and starting strictly after afterID.
	ListJobsWithoutEmbedding(ctx context.Context, afterID string, limit int) ([]*domain.Job, error)
	CountJobsWithoutEmbedding(ctx context.Context) (int, error)
}

// RequirementStore persists form requirements together with their choices.
type RequirementStore interface {
	GetRequirement(ctx context.Context, id string) (*domain.Requirement, error)
	ListRequirements(ctx context.Context, skip, limit int) ([]*domain.Requirement, error)
	CreateRequirement(ctx context.Context, r *domain.Requirement) (*domain.Requirement, error)
	UpdateRequirement(ctx context.Context, id string, r *domain.Requirement) (*domain.Requirement, error)
	DeleteRequirement(ctx context.Context, id string) (bool, error)
	FindRequirementsOrdered(ctx context.Context) ([]*domain.Requirement, error)
}

// Store bundles every entity store behind one backend.
type Store interface {
	CandidateStore
	JobStore
	RequirementStore

	Ping(ctx context.Context) error
	Close() error
}
