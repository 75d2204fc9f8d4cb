package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arturoeanton/launchpad-match/internal/adapter/store"
	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/embedding"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

// countingStore records embedding writes on top of the memory store.
type countingStore struct {
	*store.MemoryStore
	embeddingWrites atomic.Int32
}

func (s *countingStore) UpdateCandidateEmbedding(ctx context.Context, id string, vec []float32, fp string) error {
	s.embeddingWrites.Add(1)
	return s.MemoryStore.UpdateCandidateEmbedding(ctx, id, vec, fp)
}

type fixedEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (f *fixedEmbedder) EmbedCandidate(context.Context, *domain.Candidate) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return append([]float32(nil), f.vec...), nil
}

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestMatcher(t *testing.T, emb *fixedEmbedder, jobs ...*domain.Job) (*Matcher, *countingStore) {
	t.Helper()
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	for _, j := range jobs {
		if _, err := s.CreateJob(context.Background(), j); err != nil {
			t.Fatal(err)
		}
	}
	m := NewMatcher(s, s, emb, nil)
	m.now = func() time.Time { return testNow }
	return m, s
}

// unitAt returns a 2-d unit vector whose cosine with [1, 0] is cos.
func unitAt(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func TestMatchScenario(t *testing.T) {
	jobA := &domain.Job{
		ID:           "a",
		Title:        "Python Dev",
		Location:     "Boston, MA",
		Requirements: map[string]string{"education": "PhD required"},
		Embedding:    unitAt(0.9),
	}
	m, _ := newTestMatcher(t, &fixedEmbedder{}, jobA)
	cand := &domain.Candidate{
		Location:  "Boston",
		Skills:    []string{"Python"},
		Education: "PhD",
		Embedding: []float32{1, 0},
	}

	if got := TraditionalScore(cand, jobA); got != 23 {
		t.Fatalf("traditional score = %v, want 23", got)
	}

	matches, err := m.Match(context.Background(), cand, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if math.Abs(matches[0].Score-69.9) > 1e-4 {
		t.Fatalf("combined score = %v, want 69.9", matches[0].Score)
	}

	reasons := matches[0].Reasons
	want := []string{"Excellent semantic match", "Location match: Boston, MA", "Matching skills: Python", "Education match: PhD"}
	if len(reasons) != len(want) {
		t.Fatalf("reasons = %q", reasons)
	}
	for i, w := range want {
		if !strings.Contains(reasons[i], w) {
			t.Fatalf("reason %d = %q, want it to contain %q", i, reasons[i], w)
		}
	}
	if !strings.Contains(reasons[0], "(90.0%)") {
		t.Fatalf("semantic reason should carry the percentage: %q", reasons[0])
	}
}

func TestMatchSkipsJobsWithoutEmbedding(t *testing.T) {
	perfect := &domain.Job{ID: "no-vec", Title: "Go Rust Python", Location: "Boston"}
	m, _ := newTestMatcher(t, &fixedEmbedder{}, perfect)
	cand := &domain.Candidate{Location: "Boston", Skills: []string{"Go", "Rust", "Python"}, Embedding: []float32{1, 0}}

	matches, err := m.Match(context.Background(), cand, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("job without embedding must never match, got %+v", matches)
	}
}

func TestMatchThresholdAndOrdering(t *testing.T) {
	past := domain.NewDate(2026, 4, 30)
	jobs := []*domain.Job{
		{ID: "weak", Title: "x", Embedding: unitAt(0.40)},   // 28.0, dropped
		{ID: "below", Title: "x", Embedding: unitAt(0.42)},  // 29.4, dropped
		{ID: "mid", Title: "x", Embedding: unitAt(0.6)},     // 42.0
		{ID: "top", Title: "x", Embedding: unitAt(0.95)},    // 66.5
		{ID: "mid-tie", Title: "x", Embedding: unitAt(0.6)}, // 42.0, after mid
		{ID: "closed", Title: "x", Embedding: unitAt(1), ApplicationEndDate: &past},
		{ID: "zero", Title: "x", Embedding: []float32{0, 0}},
		{ID: "bad-dim", Title: "x", Embedding: []float32{1, 0, 0}},
		{ID: "opposite", Title: "x", Embedding: []float32{-1, 0}},
	}
	m, _ := newTestMatcher(t, &fixedEmbedder{}, jobs...)
	cand := &domain.Candidate{Embedding: []float32{1, 0}}

	matches, err := m.Match(context.Background(), cand, 0)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(matches))
	for i, mt := range matches {
		got[i] = mt.Job.ID
		if mt.Score <= MatchThreshold {
			t.Fatalf("score %v at or below threshold returned", mt.Score)
		}
		if i > 0 && mt.Score > matches[i-1].Score {
			t.Fatalf("results not sorted: %v", got)
		}
	}
	want := []string{"top", "mid", "mid-tie"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("matches = %v, want %v", got, want)
	}

	limited, _ := m.Match(context.Background(), cand, 1)
	if len(limited) != 1 || limited[0].Job.ID != "top" {
		t.Fatalf("limit not applied: %+v", limited)
	}
}

func TestMatchPassesOnTraditionalScoreAlone(t *testing.T) {
	job := &domain.Job{
		ID: "j", Title: "Go Rust Python Java Kotlin Scala", Location: "Berlin",
		Requirements: map[string]string{"education": "MSc", "experience": "senior"},
		Embedding:    unitAt(0.3),
	}
	m, _ := newTestMatcher(t, &fixedEmbedder{}, job)
	cand := &domain.Candidate{
		Location: "berlin", Education: "msc", Experience: "Senior",
		Skills:    []string{"go", "rust", "python", "java", "kotlin"},
		Embedding: []float32{1, 0},
	}

	matches, err := m.Match(context.Background(), cand, 10)
	if err != nil {
		t.Fatal(err)
	}
	// semantic 30 -> 21, traditional 10+25+8+6=49 -> 14.7
	if len(matches) != 1 || math.Abs(matches[0].Score-35.7) > 1e-4 {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	reasons := matches[0].Reasons
	if strings.Contains(reasons[0], "semantic") {
		t.Fatalf("no semantic reason expected at 30%%: %q", reasons)
	}
	if reasons[1] != "💡 Matching skills: go, rust, python (+2 more)" {
		t.Fatalf("skills reason = %q", reasons[1])
	}
	if reasons[len(reasons)-1] != "💼 Experience level matches" {
		t.Fatalf("experience reason missing: %q", reasons)
	}
}

func TestMatchGeneratesAndPersistsEmbeddingOnce(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{1, 0}}
	m, s := newTestMatcher(t, emb, &domain.Job{ID: "j", Title: "x", Embedding: unitAt(0.9)})

	cand, err := s.CreateCandidate(context.Background(), &domain.Candidate{Name: "Ada", Skills: []string{"Go"}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Match(context.Background(), cand, 10); err != nil {
		t.Fatal(err)
	}
	if s.embeddingWrites.Load() != 1 {
		t.Fatalf("expected one embedding write, got %d", s.embeddingWrites.Load())
	}
	stored, _ := s.GetCandidate(context.Background(), cand.ID)
	if !stored.HasEmbedding() || stored.EmbeddingFingerprint != embedding.CandidateFingerprint(stored) {
		t.Fatalf("embedding not persisted with fingerprint: %+v", stored)
	}

	// Second run on the stored candidate must not touch the store.
	if _, err := m.Match(context.Background(), stored, 10); err != nil {
		t.Fatal(err)
	}
	if s.embeddingWrites.Load() != 1 || emb.calls.Load() != 1 {
		t.Fatalf("spurious regeneration: writes=%d calls=%d", s.embeddingWrites.Load(), emb.calls.Load())
	}
}

func TestMatchRegeneratesStaleEmbedding(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{1, 0}}
	m, s := newTestMatcher(t, emb)
	cand, _ := s.CreateCandidate(context.Background(), &domain.Candidate{Name: "Ada"})
	if _, err := m.Match(context.Background(), cand, 10); err != nil {
		t.Fatal(err)
	}

	cand.Skills = []string{"Haskell"}
	if _, err := m.Match(context.Background(), cand, 10); err != nil {
		t.Fatal(err)
	}
	if emb.calls.Load() != 2 || s.embeddingWrites.Load() != 2 {
		t.Fatalf("profile change should regenerate: calls=%d writes=%d", emb.calls.Load(), s.embeddingWrites.Load())
	}

	legacy := &domain.Candidate{ID: cand.ID, Name: "changed", Embedding: []float32{0, 1}}
	if _, err := m.Match(context.Background(), legacy, 10); err != nil {
		t.Fatal(err)
	}
	if emb.calls.Load() != 2 {
		t.Fatal("embedding without fingerprint must be trusted")
	}
}

func TestMatchTransientCandidateIsNotPersisted(t *testing.T) {
	emb := &fixedEmbedder{vec: []float32{1, 0}}
	m, s := newTestMatcher(t, emb)
	cand := &domain.Candidate{Name: "Guest"}
	if _, err := m.Match(context.Background(), cand, 10); err != nil {
		t.Fatal(err)
	}
	if s.embeddingWrites.Load() != 0 {
		t.Fatal("candidate without id must not be persisted")
	}
	if !cand.HasEmbedding() {
		t.Fatal("embedding should still be set on the value")
	}
}

func TestMatchProviderUnavailable(t *testing.T) {
	emb := &fixedEmbedder{err: port.ErrProviderUnavailable}
	m, _ := newTestMatcher(t, emb)
	_, err := m.Match(context.Background(), &domain.Candidate{Name: "Ada"}, 10)
	if !errors.Is(err, port.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestFallbackMatch(t *testing.T) {
	past := domain.NewDate(2020, 1, 1)
	jobs := []*domain.Job{
		{ID: "none", Title: "Chef", Description: "Kitchen", Location: "Lisbon"},
		{ID: "skill", Title: "Go engineer", Description: "backend", Location: "Remote"},
		{ID: "both", Title: "Rust and Go", Description: "", Location: "Boston, MA", ApplicationEndDate: &past},
	}
	m, _ := newTestMatcher(t, &fixedEmbedder{}, jobs...)
	cand := &domain.Candidate{Location: "boston", Skills: []string{"Go", "Rust"}}

	matches, err := m.FallbackMatch(context.Background(), cand, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %+v", matches)
	}
	if matches[0].Job.ID != "both" || matches[0].Score != 35 {
		t.Fatalf("closed job with most hits should lead: %+v", matches[0])
	}
	wantReasons := []string{
		"Your skill 'Go' matches this job",
		"Your skill 'Rust' matches this job",
		"Location match: Boston, MA",
	}
	if strings.Join(matches[0].Reasons, "|") != strings.Join(wantReasons, "|") {
		t.Fatalf("reasons = %q", matches[0].Reasons)
	}
	if matches[1].Job.ID != "skill" || matches[1].Score != 10 {
		t.Fatalf("unexpected second match: %+v", matches[1])
	}
	for _, mt := range matches {
		if mt.Score <= 0 {
			t.Fatalf("non-positive score returned: %+v", mt)
		}
	}
}

func TestFallbackMatchExcludesJobsWithoutSignal(t *testing.T) {
	m, _ := newTestMatcher(t, &fixedEmbedder{}, &domain.Job{ID: "j", Title: "Accountant", Description: "Ledgers", Location: "Paris"})
	matches, err := m.FallbackMatch(context.Background(), &domain.Candidate{Location: "Boston", Skills: []string{"Go", "Rust"}}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v", matches)
	}
}

func TestFallbackMatchLimit(t *testing.T) {
	var jobs []*domain.Job
	for i := 0; i < 15; i++ {
		jobs = append(jobs, &domain.Job{Title: "Go"})
	}
	m, _ := newTestMatcher(t, &fixedEmbedder{}, jobs...)
	cand := &domain.Candidate{Skills: []string{"go"}}

	def, _ := m.FallbackMatch(context.Background(), cand, 0)
	if len(def) != DefaultMatchLimit {
		t.Fatalf("default limit: got %d", len(def))
	}
	three, _ := m.FallbackMatch(context.Background(), cand, 3)
	if len(three) != 3 {
		t.Fatalf("limit 3: got %d", len(three))
	}
}
