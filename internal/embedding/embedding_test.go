package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

type stubModel struct {
	calls atomic.Int32
	vec   []float32
	err   error
	delay time.Duration
}

func (s *stubModel) ModelName() string { return "stub" }

func (s *stubModel) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.vec != nil {
		return append([]float32(nil), s.vec...), nil
	}
	// Deterministic: derive the vector from the text.
	return []float32{float32(len(text)), float32(strings.Count(text, " ") + 1)}, nil
}

type batchModel struct {
	stubModel
	batches atomic.Int32
}

func (b *batchModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.batches.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
	err  error
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]float32{}} }

func (m *mapCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = vec
	return nil
}

func TestSimilarity(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -2, 5},
		{-1, -1, 4},
		{1e-3, 2e3, 7},
	}
	for _, a := range vectors {
		s, err := Similarity(a, a)
		if err != nil {
			t.Fatalf("Similarity(a, a): %v", err)
		}
		if math.Abs(s-1) > 1e-9 {
			t.Fatalf("Similarity(a, a) = %v, want 1", s)
		}
		for _, b := range vectors {
			ab, err1 := Similarity(a, b)
			ba, err2 := Similarity(b, a)
			if err1 != nil || err2 != nil {
				t.Fatalf("unexpected errors: %v %v", err1, err2)
			}
			if ab != ba {
				t.Fatalf("not symmetric: %v != %v", ab, ba)
			}
			if ab < -1 || ab > 1 {
				t.Fatalf("out of range: %v", ab)
			}
		}
	}

	opposite, err := Similarity([]float32{1, 2}, []float32{-1, -2})
	if err != nil || math.Abs(opposite+1) > 1e-9 {
		t.Fatalf("opposite vectors: got %v, %v", opposite, err)
	}
	orthogonal, err := Similarity([]float32{1, 0}, []float32{0, 3})
	if err != nil || orthogonal != 0 {
		t.Fatalf("orthogonal vectors: got %v, %v", orthogonal, err)
	}
}

func TestSimilarityMalformed(t *testing.T) {
	cases := map[string]struct{ a, b []float32 }{
		"empty":          {a: nil, b: []float32{1}},
		"both empty":     {a: []float32{}, b: []float32{}},
		"length differs": {a: []float32{1, 2}, b: []float32{1, 2, 3}},
		"zero magnitude": {a: []float32{0, 0}, b: []float32{1, 1}},
		"both zero":      {a: []float32{0, 0}, b: []float32{0, 0}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Similarity(tc.a, tc.b)
			if !errors.Is(err, port.ErrMalformedVector) {
				t.Fatalf("expected ErrMalformedVector, got %v", err)
			}
		})
	}
}

func TestJobText(t *testing.T) {
	job := &domain.Job{
		Title:        "Python Dev",
		Description:  strings.Repeat("d", 600),
		Category:     "Engineering",
		Location:     "Boston, MA",
		Requirements: map[string]string{"experience": "3 years", "education": "PhD required"},
	}
	got := JobText(job)
	want := "Python Dev " + strings.Repeat("d", 500) + "  Engineering Boston, MA education: PhD required experience: 3 years"
	if got != want {
		t.Fatalf("JobText:\n got %q\nwant %q", got, want)
	}

	bare := JobText(&domain.Job{Title: "T", Description: "D"})
	if bare != "T D   " {
		t.Fatalf("JobText without optionals = %q", bare)
	}
}

func TestJobTextTruncatesRunes(t *testing.T) {
	job := &domain.Job{Title: "x", Description: strings.Repeat("é", 501)}
	got := JobText(job)
	if n := strings.Count(got, "é"); n != DescriptionLimit {
		t.Fatalf("expected %d runes of description, got %d", DescriptionLimit, n)
	}
}

func TestCandidateText(t *testing.T) {
	c := &domain.Candidate{
		Name:       "Ada",
		Education:  "PhD",
		Location:   "Boston",
		Experience: "5 years",
		Skills:     []string{"Python", "Go"},
		Answers:    map[string]string{"q2": "yes", "q1": "remote"},
	}
	want := "Ada PhD Boston 5 years Python Go q1: remote q2: yes"
	if got := CandidateText(c); got != want {
		t.Fatalf("CandidateText = %q, want %q", got, want)
	}
	if got := CandidateText(&domain.Candidate{Name: "Bo"}); got != "Bo   " {
		t.Fatalf("CandidateText without optionals = %q", got)
	}
}

func TestFingerprintTracksText(t *testing.T) {
	c := &domain.Candidate{Name: "Ada", Skills: []string{"Go"}}
	before := CandidateFingerprint(c)
	if before != CandidateFingerprint(c.Clone()) {
		t.Fatal("fingerprint must be deterministic")
	}
	c.Skills = append(c.Skills, "Rust")
	if before == CandidateFingerprint(c) {
		t.Fatal("fingerprint must change with the text")
	}
	if len(before) != 64 {
		t.Fatalf("expected hex sha256, got %q", before)
	}
}

func TestProviderDeterministic(t *testing.T) {
	p := NewProvider(&stubModel{})
	job := &domain.Job{Title: "Go Dev", Description: "backend"}
	a, err := p.EmbedJob(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.EmbedJob(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("length differs")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestProviderErrors(t *testing.T) {
	ctx := context.Background()

	failing := NewProvider(&stubModel{err: errors.New("connection refused")})
	if _, err := failing.EmbedText(ctx, "x"); !errors.Is(err, port.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	wrongDim := NewProvider(&stubModel{vec: []float32{1, 2, 3}}, WithDimension(2))
	if _, err := wrongDim.EmbedText(ctx, "x"); !errors.Is(err, port.ErrMalformedVector) {
		t.Fatalf("expected ErrMalformedVector, got %v", err)
	}

	slow := NewProvider(&stubModel{delay: time.Second}, WithTimeout(10*time.Millisecond))
	if _, err := slow.EmbedText(ctx, "x"); !errors.Is(err, port.ErrProviderUnavailable) {
		t.Fatalf("expected timeout as ErrProviderUnavailable, got %v", err)
	}

	closed := NewProvider(&stubModel{})
	if err := closed.Close(); err != nil {
		t.Fatal(err)
	}
	if err := closed.Close(); err != nil {
		t.Fatal("second Close must be a no-op")
	}
	if _, err := closed.EmbedText(ctx, "x"); !errors.Is(err, port.ErrProviderUnavailable) {
		t.Fatalf("expected closed provider to fail, got %v", err)
	}
}

func TestProviderCache(t *testing.T) {
	model := &stubModel{vec: []float32{0.5, 0.5}}
	cache := newMapCache()
	p := NewProvider(model, WithCache(cache), WithDimension(2))

	for i := 0; i < 3; i++ {
		if _, err := p.EmbedText(context.Background(), "same text"); err != nil {
			t.Fatal(err)
		}
	}
	if n := model.calls.Load(); n != 1 {
		t.Fatalf("expected 1 model call, got %d", n)
	}
	if _, ok := cache.data["stub:"+Fingerprint("same text")]; !ok {
		t.Fatalf("expected cache entry, got %v", cache.data)
	}

	// Broken cache degrades to direct model calls.
	cache.err = errors.New("redis down")
	if _, err := p.EmbedText(context.Background(), "same text"); err != nil {
		t.Fatalf("cache failure must not fail embedding: %v", err)
	}
	if n := model.calls.Load(); n != 2 {
		t.Fatalf("expected 2 model calls, got %d", n)
	}
}

func TestProviderCollapsesConcurrentCalls(t *testing.T) {
	model := &stubModel{vec: []float32{1, 0}, delay: 50 * time.Millisecond}
	p := NewProvider(model)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.EmbedText(context.Background(), "shared"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if n := model.calls.Load(); n >= 8 {
		t.Fatalf("expected concurrent calls to be collapsed, got %d model calls", n)
	}
}

func TestProviderReturnsCopies(t *testing.T) {
	p := NewProvider(&stubModel{vec: []float32{1, 2}}, WithCache(newMapCache()))
	a, _ := p.EmbedText(context.Background(), "t")
	a[0] = 99
	b, _ := p.EmbedText(context.Background(), "t")
	if b[0] != 1 {
		t.Fatalf("caller mutation leaked into provider state: %v", b)
	}
}

func TestEmbedJobsBatchesMisses(t *testing.T) {
	model := &batchModel{}
	cache := newMapCache()
	p := NewProvider(model, WithCache(cache))
	jobs := []*domain.Job{{Title: "a"}, {Title: "bb"}, {Title: "ccc"}}

	// Warm the cache for the middle job.
	if _, err := p.EmbedJob(context.Background(), jobs[1]); err != nil {
		t.Fatal(err)
	}

	vecs, err := p.EmbedJobs(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, j := range jobs {
		if vecs[i][0] != float32(len(JobText(j))) {
			t.Fatalf("vector %d not aligned with its job: %v", i, vecs[i])
		}
	}
	if n := model.batches.Load(); n != 1 {
		t.Fatalf("expected 1 batch call, got %d", n)
	}
}
