package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/labia/internal/config"
)

const (
	taskDocument = "document"
	taskQuery    = "query"
)

// ResilientEmbedder wraps a provider with a cache, a request rate limit, a per-call timeout and
// retries with exponential backoff.
type ResilientEmbedder struct {
	inner       Embedder
	cache       Cache
	limiter     *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	logger      *zap.Logger
}

// NewResilientEmbedder wraps inner using the retry, timeout and rate settings of cfg.
func NewResilientEmbedder(inner Embedder, cfg *config.EmbeddingConfig, opts ...Option) *ResilientEmbedder {
	s := applyOptions(opts)
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	return &ResilientEmbedder{
		inner:       inner,
		cache:       s.cache,
		limiter:     rate.NewLimiter(limit, burst),
		maxAttempts: attempts,
		baseDelay:   cfg.BaseDelay,
		timeout:     cfg.Timeout,
		logger:      s.logger,
	}
}

// Embed embeds one document text.
func (r *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return r.single(ctx, taskDocument, text, r.inner.Embed)
}

// EmbedQuery embeds a search query.
func (r *ResilientEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return r.single(ctx, taskQuery, text, r.inner.EmbedQuery)
}

// EmbedBatch embeds texts, sending only cache misses to the provider in one call.
func (r *ResilientEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []int
	for i, t := range texts {
		if v, ok := r.lookup(taskDocument, t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	var vecs [][]float32
	err := r.call(ctx, func(cctx context.Context) error {
		var err error
		vecs, err = r.inner.EmbedBatch(cctx, batch)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("%w: asked for %d, got %d", ErrEmptyResponse, len(batch), len(vecs))
	}
	for j, i := range missing {
		if err := r.check(vecs[j]); err != nil {
			return nil, err
		}
		out[i] = vecs[j]
		r.store(taskDocument, texts[i], vecs[j])
	}
	return out, nil
}

func (r *ResilientEmbedder) single(ctx context.Context, task, text string, fn func(context.Context, string) ([]float32, error)) ([]float32, error) {
	if v, ok := r.lookup(task, text); ok {
		return v, nil
	}
	var vec []float32
	err := r.call(ctx, func(cctx context.Context) error {
		var err error
		vec, err = fn(cctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := r.check(vec); err != nil {
		return nil, err
	}
	r.store(task, text, vec)
	return vec, nil
}

// call runs fn under the rate limit and the per-call timeout, retrying failures.
func (r *ResilientEmbedder) call(ctx context.Context, fn func(context.Context) error) error {
	attempt := 0
	err := RetryWithBackoff(ctx, func() error {
		attempt++
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		cctx, cancel := r.withTimeout(ctx)
		defer cancel()
		err := fn(cctx)
		if err != nil && r.logger != nil {
			r.logger.Debug("embedding call failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.maxAttempts),
				zap.Error(err))
		}
		return err
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return fmt.Errorf("embedding failed after %d attempts: %w", attempt, err)
	}
	return nil
}

func (r *ResilientEmbedder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *ResilientEmbedder) check(v []float32) error {
	if len(v) == 0 {
		return ErrEmptyResponse
	}
	if d := r.inner.Dimensions(); d > 0 && len(v) != d {
		return fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(v), d)
	}
	return nil
}

func (r *ResilientEmbedder) lookup(task, text string) ([]float32, bool) {
	if r.cache == nil {
		return nil, false
	}
	return r.cache.Get(CacheKey(r.inner.Model(), task, text))
}

func (r *ResilientEmbedder) store(task, text string, v []float32) {
	if r.cache != nil {
		r.cache.Set(CacheKey(r.inner.Model(), task, text), v)
	}
}

// Dimensions returns the provider dimension.
func (r *ResilientEmbedder) Dimensions() int { return r.inner.Dimensions() }

// Model returns the provider model.
func (r *ResilientEmbedder) Model() string { return r.inner.Model() }

// Close closes the provider and the cache.
func (r *ResilientEmbedder) Close() error {
	err := r.inner.Close()
	if r.cache != nil {
		if cerr := r.cache.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
