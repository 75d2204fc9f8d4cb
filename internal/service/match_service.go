package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

// MatchService resolves a candidate by id and runs the matcher. With
// autoFallback set, a semantic request whose embedding backend is down is
// answered by the rule-based path instead.
type MatchService struct {
	candidates   port.CandidateStore
	matcher      *Matcher
	autoFallback bool
	logger       *zap.Logger
}

// NewMatchService creates a new match service.
func NewMatchService(candidates port.CandidateStore, matcher *Matcher, autoFallback bool, logger *zap.Logger) *MatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchService{candidates: candidates, matcher: matcher, autoFallback: autoFallback, logger: logger}
}

// MatchOutcome carries the results and the mode that produced them.
type MatchOutcome struct {
	Candidate *domain.Candidate
	Matches   []domain.MatchResult
	Mode      string
}

// Match runs semantic matching for the candidate with id candidateID.
func (s *MatchService) Match(ctx context.Context, candidateID string, limit int) (*MatchOutcome, error) {
	c, err := s.candidates.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	matches, err := s.matcher.Match(ctx, c, limit)
	if err == nil {
		return &MatchOutcome{Candidate: c, Matches: matches, Mode: domain.MatchModeSemantic}, nil
	}
	if !s.autoFallback || !errors.Is(err, port.ErrProviderUnavailable) {
		return nil, err
	}

	s.logger.Warn("embedding provider unavailable, using fallback matching",
		zap.String("candidate_id", candidateID), zap.Error(err))
	matches, err = s.matcher.FallbackMatch(ctx, c, limit)
	if err != nil {
		return nil, err
	}
	return &MatchOutcome{Candidate: c, Matches: matches, Mode: domain.MatchModeFallback}, nil
}

// Fallback runs rule-based matching for the candidate with id candidateID.
func (s *MatchService) Fallback(ctx context.Context, candidateID string, limit int) (*MatchOutcome, error) {
	c, err := s.candidates.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matcher.FallbackMatch(ctx, c, limit)
	if err != nil {
		return nil, err
	}
	return &MatchOutcome{Candidate: c, Matches: matches, Mode: domain.MatchModeFallback}, nil
}
