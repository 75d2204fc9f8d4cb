package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

// table is an insertion-ordered map guarded by the owning store's lock.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// each visits rows in insertion order until fn returns false.
func (t *table[T]) each(fn func(T) bool) {
	for _, id := range t.order {
		if !fn(t.rows[id]) {
			return
		}
	}
}

// page applies skip/limit to a slice. limit <= 0 means no limit.
func page[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// MemoryStore implements port.Store in process memory. Entities are copied on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	candidates   *table[*domain.Candidate]
	jobs         *table[*domain.Job]
	requirements *table[*domain.Requirement]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candidates:   newTable[*domain.Candidate](),
		jobs:         newTable[*domain.Job](),
		requirements: newTable[*domain.Requirement](),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// --- Candidates ---

// GetCandidate returns a candidate by its ID.
func (s *MemoryStore) GetCandidate(_ context.Context, id string) (*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates.rows[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, port.ErrCandidateNotFound)
	}
	return c.Clone(), nil
}

// ListCandidates returns a page of candidates in insertion order.
func (s *MemoryStore) ListCandidates(_ context.Context, skip, limit int) ([]*domain.Candidate, error) {
	return page(s.filterCandidates(func(*domain.Candidate) bool { return true }), skip, limit), nil
}

// CreateCandidate stores a new candidate, assigning an ID when empty.
func (s *MemoryStore) CreateCandidate(_ context.Context, c *domain.Candidate) (*domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := c.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := s.candidates.rows[stored.ID]; exists {
		return nil, fmt.Errorf("create candidate %s: %w: duplicate id", stored.ID, port.ErrInvalidInput)
	}
	s.candidates.put(stored.ID, stored)
	return stored.Clone(), nil
}

// UpdateCandidate replaces the stored candidate with id.
func (s *MemoryStore) UpdateCandidate(_ context.Context, id string, c *domain.Candidate) (*domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates.rows[id]; !ok {
		return nil, fmt.Errorf("update %s: %w", id, port.ErrCandidateNotFound)
	}
	stored := c.Clone()
	stored.ID = id
	s.candidates.put(id, stored)
	return stored.Clone(), nil
}

// DeleteCandidate removes a candidate and reports whether it existed.
func (s *MemoryStore) DeleteCandidate(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidates.remove(id), nil
}

// FindCandidatesByLocation returns candidates whose location matches, ignoring case.
func (s *MemoryStore) FindCandidatesByLocation(_ context.Context, location string) ([]*domain.Candidate, error) {
	return s.filterCandidates(func(c *domain.Candidate) bool {
		return strings.EqualFold(c.Location, location)
	}), nil
}

// UpdateCandidateEmbedding stores the candidate vector and the fingerprint it was computed from.
func (s *MemoryStore) UpdateCandidateEmbedding(_ context.Context, id string, vec []float32, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates.rows[id]
	if !ok {
		return fmt.Errorf("update embedding %s: %w", id, port.ErrCandidateNotFound)
	}
	updated := c.Clone()
	updated.Embedding = append([]float32(nil), vec...)
	updated.EmbeddingFingerprint = fingerprint
	s.candidates.put(id, updated)
	return nil
}

func (s *MemoryStore) filterCandidates(keep func(*domain.Candidate) bool) []*domain.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Candidate{}
	s.candidates.each(func(c *domain.Candidate) bool {
		if keep(c) {
			out = append(out, c.Clone())
		}
		return true
	})
	return out
}

// --- Jobs ---

// GetJob returns a job by its ID.
func (s *MemoryStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs.rows[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, port.ErrJobNotFound)
	}
	return j.Clone(), nil
}

// ListJobs returns a page of jobs in insertion order.
func (s *MemoryStore) ListJobs(_ context.Context, skip, limit int) ([]*domain.Job, error) {
	return page(s.filterJobs(func(*domain.Job) bool { return true }), skip, limit), nil
}

// ListAllJobs returns every job.
func (s *MemoryStore) ListAllJobs(_ context.Context) ([]*domain.Job, error) {
	return s.filterJobs(func(*domain.Job) bool { return true }), nil
}

// CreateJob stores a new job, assigning an ID when empty.
func (s *MemoryStore) CreateJob(_ context.Context, j *domain.Job) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := j.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := s.jobs.rows[stored.ID]; exists {
		return nil, fmt.Errorf("create job %s: %w: duplicate id", stored.ID, port.ErrInvalidInput)
	}
	s.jobs.put(stored.ID, stored)
	return stored.Clone(), nil
}

// UpdateJob replaces the stored job with id.
func (s *MemoryStore) UpdateJob(_ context.Context, id string, j *domain.Job) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs.rows[id]; !ok {
		return nil, fmt.Errorf("update %s: %w", id, port.ErrJobNotFound)
	}
	stored := j.Clone()
	stored.ID = id
	s.jobs.put(id, stored)
	return stored.Clone(), nil
}

// DeleteJob removes a job and reports whether it existed.
func (s *MemoryStore) DeleteJob(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs.remove(id), nil
}

// FindJobsByCategory returns jobs whose category matches, ignoring case.
func (s *MemoryStore) FindJobsByCategory(_ context.Context, category string) ([]*domain.Job, error) {
	return s.filterJobs(func(j *domain.Job) bool {
		return strings.EqualFold(j.Category, category)
	}), nil
}

// FindAvailableJobs returns jobs still open on the calendar day of asOf.
func (s *MemoryStore) FindAvailableJobs(_ context.Context, asOf time.Time) ([]*domain.Job, error) {
	return s.filterJobs(func(j *domain.Job) bool {
		return j.IsAvailable(asOf)
	}), nil
}

// UpdateJobEmbedding stores the job vector.
func (s *MemoryStore) UpdateJobEmbedding(_ context.Context, id string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs.rows[id]
	if !ok {
		return fmt.Errorf("update embedding %s: %w", id, port.ErrJobNotFound)
	}
	updated := j.Clone()
	updated.Embedding = append([]float32(nil), vec...)
	s.jobs.put(id, updated)
	return nil
}

// ListJobsWithoutEmbedding returns up to limit unembedded jobs with IDs after afterID, in ID order.
func (s *MemoryStore) ListJobsWithoutEmbedding(_ context.Context, afterID string, limit int) ([]*domain.Job, error) {
	missing := s.filterJobs(func(j *domain.Job) bool {
		return !j.HasEmbedding() && j.ID > afterID
	})
	sort.Slice(missing, func(a, b int) bool { return missing[a].ID < missing[b].ID })
	return page(missing, 0, limit), nil
}

// CountJobsWithoutEmbedding returns how many jobs have no vector.
func (s *MemoryStore) CountJobsWithoutEmbedding(_ context.Context) (int, error) {
	return len(s.filterJobs(func(j *domain.Job) bool { return !j.HasEmbedding() })), nil
}

func (s *MemoryStore) filterJobs(keep func(*domain.Job) bool) []*domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Job{}
	s.jobs.each(func(j *domain.Job) bool {
		if keep(j) {
			out = append(out, j.Clone())
		}
		return true
	})
	return out
}

// --- Requirements ---

// GetRequirement returns a requirement by its ID.
func (s *MemoryStore) GetRequirement(_ context.Context, id string) (*domain.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requirements.rows[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, port.ErrRequirementNotFound)
	}
	return r.Clone(), nil
}

// ListRequirements returns a page of requirements in insertion order.
func (s *MemoryStore) ListRequirements(_ context.Context, skip, limit int) ([]*domain.Requirement, error) {
	return page(s.allRequirements(), skip, limit), nil
}

// CreateRequirement stores a new requirement with its choices.
func (s *MemoryStore) CreateRequirement(_ context.Context, r *domain.Requirement) (*domain.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := withChoiceIDs(r.Clone())
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := s.requirements.rows[stored.ID]; exists {
		return nil, fmt.Errorf("create requirement %s: %w: duplicate id", stored.ID, port.ErrInvalidInput)
	}
	s.requirements.put(stored.ID, stored)
	return stored.Clone(), nil
}

// UpdateRequirement replaces the requirement and its whole choice list.
func (s *MemoryStore) UpdateRequirement(_ context.Context, id string, r *domain.Requirement) (*domain.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requirements.rows[id]; !ok {
		return nil, fmt.Errorf("update %s: %w", id, port.ErrRequirementNotFound)
	}
	stored := withChoiceIDs(r.Clone())
	stored.ID = id
	s.requirements.put(id, stored)
	return stored.Clone(), nil
}

// DeleteRequirement removes the requirement; its choices go with it.
func (s *MemoryStore) DeleteRequirement(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requirements.remove(id), nil
}

// FindRequirementsOrdered returns every requirement sorted by display order.
func (s *MemoryStore) FindRequirementsOrdered(_ context.Context) ([]*domain.Requirement, error) {
	out := s.allRequirements()
	sort.SliceStable(out, func(a, b int) bool { return out[a].Order < out[b].Order })
	return out, nil
}

func (s *MemoryStore) allRequirements() []*domain.Requirement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Requirement{}
	s.requirements.each(func(r *domain.Requirement) bool {
		out = append(out, r.Clone())
		return true
	})
	return out
}

func withChoiceIDs(r *domain.Requirement) *domain.Requirement {
	for i := range r.Choices {
		if r.Choices[i].ID == "" {
			r.Choices[i].ID = uuid.NewString()
		}
	}
	return r
}
