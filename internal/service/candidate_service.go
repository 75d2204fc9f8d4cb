package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
	"github.com/arturoeanton/launchpad-match/internal/validation"
)

// DefaultListLimit is the page size when the caller does not pass one.
const DefaultListLimit = 100

// CandidateService manages candidate profiles.
type CandidateService struct {
	store    port.CandidateStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCandidateService creates a new candidate service.
func NewCandidateService(store port.CandidateStore, validate *validator.Validate, logger *zap.Logger) *CandidateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CandidateService{store: store, validate: validate, logger: logger}
}

// Get returns a candidate by id.
func (s *CandidateService) Get(ctx context.Context, id string) (*domain.Candidate, error) {
	return s.store.GetCandidate(ctx, id)
}

// List returns a page of candidates.
func (s *CandidateService) List(ctx context.Context, skip, limit int) ([]*domain.Candidate, error) {
	return s.store.ListCandidates(ctx, skip, listLimit(limit))
}

// FindByLocation returns candidates whose location equals location.
func (s *CandidateService) FindByLocation(ctx context.Context, location string) ([]*domain.Candidate, error) {
	return s.store.FindCandidatesByLocation(ctx, location)
}

// Create validates and stores a new candidate.
func (s *CandidateService) Create(ctx context.Context, in CandidateInput) (*domain.Candidate, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	c, err := s.store.CreateCandidate(ctx, in.toDomain())
	if err != nil {
		return nil, err
	}
	s.logger.Info("candidate created", zap.String("candidate_id", c.ID))
	return c, nil
}

// Update applies patch to the stored candidate. The stored embedding is kept;
// the matcher notices the changed fingerprint and regenerates it.
func (s *CandidateService) Update(ctx context.Context, id string, patch CandidatePatch) (*domain.Candidate, error) {
	if err := validateInput(s.validate, patch); err != nil {
		return nil, err
	}
	c, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(c)
	return s.store.UpdateCandidate(ctx, id, c)
}

// Delete removes a candidate, failing with ErrCandidateNotFound when absent.
func (s *CandidateService) Delete(ctx context.Context, id string) error {
	ok, err := s.store.DeleteCandidate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete %s: %w", id, port.ErrCandidateNotFound)
	}
	s.logger.Info("candidate deleted", zap.String("candidate_id", id))
	return nil
}

func validateInput(v *validator.Validate, in any) error {
	if v == nil {
		return nil
	}
	if err := v.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", port.ErrInvalidInput, validation.Describe(err))
	}
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
