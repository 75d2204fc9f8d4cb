package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

const defaultTimeout = 30 * time.Second

// Provider turns jobs and candidates into vectors through an injected model.
// It is built once at startup and shared; all methods are safe for
// concurrent use.
type Provider struct {
	model     port.Embedder
	cache     port.EmbeddingCache
	timeout   time.Duration
	dimension int
	logger    *zap.Logger
	group     singleflight.Group
	closed    chan struct{}
}

// Option configures a Provider.
type Option func(*Provider)

// WithCache consults c before calling the model.
func WithCache(c port.EmbeddingCache) Option {
	return func(p *Provider) { p.cache = c }
}

// WithTimeout bounds every model call.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithDimension rejects model output whose length differs from n.
func WithDimension(n int) Option {
	return func(p *Provider) { p.dimension = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider wraps model.
func NewProvider(model port.Embedder, opts ...Option) *Provider {
	p := &Provider{
		model:   model,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
		closed:  make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ModelName returns the underlying model identifier.
func (p *Provider) ModelName() string {
	return p.model.ModelName()
}

// Dimension returns the configured vector length, 0 when unchecked.
func (p *Provider) Dimension() int {
	return p.dimension
}

// EmbedJob embeds JobText(j).
func (p *Provider) EmbedJob(ctx context.Context, j *domain.Job) ([]float32, error) {
	return p.EmbedText(ctx, JobText(j))
}

// EmbedCandidate embeds CandidateText(c).
func (p *Provider) EmbedCandidate(ctx context.Context, c *domain.Candidate) ([]float32, error) {
	return p.EmbedText(ctx, CandidateText(c))
}

// EmbedText returns the vector for text. Model failures wrap
// port.ErrProviderUnavailable, a vector of the wrong size wraps
// port.ErrMalformedVector.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-p.closed:
		return nil, fmt.Errorf("%w: provider closed", port.ErrProviderUnavailable)
	default:
	}

	key := p.cacheKey(text)
	if vec, ok := p.cacheGet(ctx, key); ok {
		return clone(vec), nil
	}

	ch := p.group.DoChan(key, func() (interface{}, error) {
		// Detached from the first caller so its cancellation does not fail
		// the callers sharing this flight.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		vec, err := p.model.Embed(callCtx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", port.ErrProviderUnavailable, p.model.ModelName(), err)
		}
		if err := p.checkDimension(vec); err != nil {
			return nil, err
		}
		p.cacheSet(callCtx, key, vec)
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", port.ErrProviderUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]float32)), nil
	}
}

// EmbedJobs embeds several jobs, batching cache misses into one model call
// when the model supports it. The result is index-aligned with jobs.
func (p *Provider) EmbedJobs(ctx context.Context, jobs []*domain.Job) ([][]float32, error) {
	out := make([][]float32, len(jobs))
	batcher, ok := p.model.(port.BatchEmbedder)
	if !ok {
		for i, j := range jobs {
			vec, err := p.EmbedJob(ctx, j)
			if err != nil {
				return nil, err
			}
			out[i] = vec
		}
		return out, nil
	}

	var (
		missIdx  []int
		missText []string
	)
	for i, j := range jobs {
		text := JobText(j)
		if vec, ok := p.cacheGet(ctx, p.cacheKey(text)); ok {
			out[i] = clone(vec)
			continue
		}
		missIdx = append(missIdx, i)
		missText = append(missText, text)
	}
	if len(missText) == 0 {
		return out, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	vecs, err := batcher.EmbedBatch(callCtx, missText)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", port.ErrProviderUnavailable, p.model.ModelName(), err)
	}
	if len(vecs) != len(missText) {
		return nil, fmt.Errorf("%w: batch returned %d vectors for %d inputs", port.ErrMalformedVector, len(vecs), len(missText))
	}
	for k, vec := range vecs {
		if err := p.checkDimension(vec); err != nil {
			return nil, err
		}
		p.cacheSet(ctx, p.cacheKey(missText[k]), vec)
		out[missIdx[k]] = vec
	}
	return out, nil
}

// Close stops the provider. Later calls fail with ErrProviderUnavailable.
func (p *Provider) Close() error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	return nil
}

func (p *Provider) checkDimension(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: model returned an empty vector", port.ErrMalformedVector)
	}
	if p.dimension > 0 && len(vec) != p.dimension {
		return fmt.Errorf("%w: model returned %d dimensions, want %d", port.ErrMalformedVector, len(vec), p.dimension)
	}
	return nil
}

func (p *Provider) cacheKey(text string) string {
	return p.model.ModelName() + ":" + Fingerprint(text)
}

func (p *Provider) cacheGet(ctx context.Context, key string) ([]float32, bool) {
	if p.cache == nil {
		return nil, false
	}
	vec, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok || p.checkDimension(vec) != nil {
		return nil, false
	}
	return vec, true
}

func (p *Provider) cacheSet(ctx context.Context, key string, vec []float32) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, key, vec); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
