package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/embedding"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

// Blend weights and cutoff of the semantic mode.
const (
	SemanticWeight    = 0.7
	TraditionalWeight = 0.3
	MatchThreshold    = 30.0
)

// Rule points added to the traditional score.
const (
	LocationPoints   = 10.0
	SkillPoints      = 5.0
	EducationPoints  = 8.0
	ExperiencePoints = 6.0
)

// Fallback mode points, independent of the rule points above.
const (
	FallbackSkillPoints    = 10.0
	FallbackLocationPoints = 15.0
)

// Semantic explanation tiers, on the percentage scale.
const (
	ExcellentSemanticScore = 80.0
	GoodSemanticScore      = 60.0
	ModerateSemanticScore  = 40.0
)

// DefaultMatchLimit applies when the caller passes limit <= 0.
const DefaultMatchLimit = 10

// maxListedSkills is how many matched skills an explanation names.
const maxListedSkills = 3

// Embedder is the part of the embedding provider the matcher needs.
type Embedder interface {
	EmbedCandidate(ctx context.Context, c *domain.Candidate) ([]float32, error)
}

// Matcher ranks jobs for a candidate.
type Matcher struct {
	jobs       port.JobStore
	candidates port.CandidateStore
	embedder   Embedder
	logger     *zap.Logger
	now        func() time.Time
}

// NewMatcher creates a new matcher.
func NewMatcher(jobs port.JobStore, candidates port.CandidateStore, embedder Embedder, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		jobs:       jobs,
		candidates: candidates,
		embedder:   embedder,
		logger:     logger,
		now:        time.Now,
	}
}

// Match ranks the available jobs by a blend of embedding similarity and
// rule-based score. Jobs without an embedding are never returned.
//
// The candidate's embedding is generated when missing or stale and written
// back to the store when the candidate has an id. c is updated in place.
func (m *Matcher) Match(ctx context.Context, c *domain.Candidate, limit int) ([]domain.MatchResult, error) {
	limit = normalizeLimit(limit)

	// 1. Make sure the candidate has a current embedding
	if err := m.ensureEmbedding(ctx, c); err != nil {
		return nil, err
	}

	// 2. Fetch the open jobs
	pool, err := m.jobs.FindAvailableJobs(ctx, m.now())
	if err != nil {
		return nil, fmt.Errorf("find available jobs: %w", err)
	}

	// 3. Score each job that has an embedding
	matches := make([]domain.MatchResult, 0, len(pool))
	for _, job := range pool {
		if !job.HasEmbedding() {
			continue
		}

		similarity, err := embedding.Similarity(c.Embedding, job.Embedding)
		if err != nil {
			m.logger.Debug("skipping job with unusable embedding",
				zap.String("job_id", job.ID), zap.Error(err))
			continue
		}

		semantic := similarity * 100
		traditional := TraditionalScore(c, job)
		combined := SemanticWeight*semantic + TraditionalWeight*traditional
		if combined <= MatchThreshold {
			continue
		}

		matches = append(matches, domain.MatchResult{
			Job:     *job,
			Score:   combined,
			Reasons: MatchReasons(c, job, semantic),
		})
	}

	// 4. Rank and truncate
	return topN(matches, limit), nil
}

// FallbackMatch ranks every job, open or not, by skill and location hits
// alone. It needs no embeddings. Jobs with no hit are dropped.
func (m *Matcher) FallbackMatch(ctx context.Context, c *domain.Candidate, limit int) ([]domain.MatchResult, error) {
	limit = normalizeLimit(limit)

	pool, err := m.jobs.ListAllJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	matches := make([]domain.MatchResult, 0, len(pool))
	for _, job := range pool {
		var (
			score   float64
			reasons []string
		)
		for _, skill := range matchedSkills(c, job) {
			score += FallbackSkillPoints
			reasons = append(reasons, fmt.Sprintf("Your skill '%s' matches this job", skill))
		}
		if locationMatches(c, job) {
			score += FallbackLocationPoints
			reasons = append(reasons, "Location match: "+job.Location)
		}
		if score <= 0 {
			continue
		}
		matches = append(matches, domain.MatchResult{Job: *job, Score: score, Reasons: reasons})
	}

	return topN(matches, limit), nil
}

// ensureEmbedding computes the candidate embedding when absent, or when the
// stored fingerprint no longer matches the profile text. An embedding with
// no fingerprint predates fingerprinting and is trusted.
func (m *Matcher) ensureEmbedding(ctx context.Context, c *domain.Candidate) error {
	fingerprint := embedding.CandidateFingerprint(c)
	if c.HasEmbedding() && (c.EmbeddingFingerprint == "" || c.EmbeddingFingerprint == fingerprint) {
		return nil
	}

	vec, err := m.embedder.EmbedCandidate(ctx, c)
	if err != nil {
		return fmt.Errorf("embed candidate: %w", err)
	}
	c.Embedding = vec
	c.EmbeddingFingerprint = fingerprint

	if c.ID == "" {
		return nil
	}
	if err := m.candidates.UpdateCandidateEmbedding(ctx, c.ID, vec, fingerprint); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			// Deleted meanwhile; the match itself can still be served.
			m.logger.Warn("candidate vanished before its embedding was saved", zap.String("candidate_id", c.ID))
			return nil
		}
		return fmt.Errorf("save candidate embedding: %w", err)
	}
	m.logger.Debug("candidate embedding saved", zap.String("candidate_id", c.ID))
	return nil
}

// TraditionalScore is the rule-based part of the semantic mode.
func TraditionalScore(c *domain.Candidate, j *domain.Job) float64 {
	var score float64
	if locationMatches(c, j) {
		score += LocationPoints
	}
	score += SkillPoints * float64(len(matchedSkills(c, j)))
	if requirementMatches(c.Education, j, domain.RequirementEducation) {
		score += EducationPoints
	}
	if requirementMatches(c.Experience, j, domain.RequirementExperience) {
		score += ExperiencePoints
	}
	return score
}

// MatchReasons explains a semantic-mode match. semantic is on the
// percentage scale.
func MatchReasons(c *domain.Candidate, j *domain.Job, semantic float64) []string {
	reasons := []string{}

	switch {
	case semantic > ExcellentSemanticScore:
		reasons = append(reasons, fmt.Sprintf("🎯 Excellent semantic match (%.1f%%)", semantic))
	case semantic > GoodSemanticScore:
		reasons = append(reasons, fmt.Sprintf("✅ Good semantic match (%.1f%%)", semantic))
	case semantic > ModerateSemanticScore:
		reasons = append(reasons, fmt.Sprintf("👍 Moderate semantic match (%.1f%%)", semantic))
	}

	if locationMatches(c, j) {
		reasons = append(reasons, "📍 Location match: "+j.Location)
	}

	if skills := matchedSkills(c, j); len(skills) > 0 {
		listed := strings.Join(skills[:min(len(skills), maxListedSkills)], ", ")
		if extra := len(skills) - maxListedSkills; extra > 0 {
			listed += fmt.Sprintf(" (+%d more)", extra)
		}
		reasons = append(reasons, "💡 Matching skills: "+listed)
	}

	if requirementMatches(c.Education, j, domain.RequirementEducation) {
		reasons = append(reasons, "🎓 Education match: "+c.Education)
	}
	if requirementMatches(c.Experience, j, domain.RequirementExperience) {
		reasons = append(reasons, "💼 Experience level matches")
	}

	return reasons
}

func locationMatches(c *domain.Candidate, j *domain.Job) bool {
	if c.Location == "" || j.Location == "" {
		return false
	}
	return containsFold(j.Location, c.Location)
}

// matchedSkills returns the candidate skills found in the job title or
// description, in candidate order. Blank skills never match.
func matchedSkills(c *domain.Candidate, j *domain.Job) []string {
	text := strings.ToLower(j.Title + " " + j.Description)
	var out []string
	for _, skill := range c.Skills {
		if strings.TrimSpace(skill) == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(skill)) {
			out = append(out, skill)
		}
	}
	return out
}

func requirementMatches(value string, j *domain.Job, key domain.RequirementKey) bool {
	if value == "" {
		return false
	}
	required := j.Requirement(key)
	if required == "" {
		return false
	}
	return containsFold(required, value)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultMatchLimit
	}
	return limit
}

// topN sorts by descending score, keeping pool order among ties.
func topN(matches []domain.MatchResult, n int) []domain.MatchResult {
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}
