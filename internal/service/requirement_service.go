package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

// RequirementService manages the candidate questionnaire.
type RequirementService struct {
	store    port.RequirementStore
	validate *validator.Validate
}

// NewRequirementService creates a new requirement service.
func NewRequirementService(store port.RequirementStore, validate *validator.Validate) *RequirementService {
	return &RequirementService{store: store, validate: validate}
}

func (s *RequirementService) Get(ctx context.Context, id string) (*domain.Requirement, error) {
	return s.store.GetRequirement(ctx, id)
}

func (s *RequirementService) List(ctx context.Context, skip, limit int) ([]*domain.Requirement, error) {
	return s.store.ListRequirements(ctx, skip, listLimit(limit))
}

// Ordered returns every requirement sorted by display order.
func (s *RequirementService) Ordered(ctx context.Context) ([]*domain.Requirement, error) {
	return s.store.FindRequirementsOrdered(ctx)
}

func (s *RequirementService) Create(ctx context.Context, in RequirementInput) (*domain.Requirement, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	r := in.toDomain()
	if err := checkChoices(r); err != nil {
		return nil, err
	}
	return s.store.CreateRequirement(ctx, r)
}

func (s *RequirementService) Update(ctx context.Context, id string, patch RequirementPatch) (*domain.Requirement, error) {
	if err := validateInput(s.validate, patch); err != nil {
		return nil, err
	}
	r, err := s.store.GetRequirement(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(r)
	if err := checkChoices(r); err != nil {
		return nil, err
	}
	return s.store.UpdateRequirement(ctx, id, r)
}

// Delete removes a requirement and its choices.
func (s *RequirementService) Delete(ctx context.Context, id string) error {
	ok, err := s.store.DeleteRequirement(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete %s: %w", id, port.ErrRequirementNotFound)
	}
	return nil
}

// checkChoices requires at least one choice for choice questions and unique
// choice ids.
func checkChoices(r *domain.Requirement) error {
	isChoice := r.Type == domain.QuestionTypeSingleChoice || r.Type == domain.QuestionTypeMultipleChoice
	if isChoice && len(r.Choices) == 0 {
		return fmt.Errorf("%w: %s requirement needs at least one choice", port.ErrInvalidInput, r.Type)
	}
	seen := make(map[string]bool, len(r.Choices))
	for _, c := range r.Choices {
		if c.ID == "" {
			continue
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate choice id %q", port.ErrInvalidInput, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}
