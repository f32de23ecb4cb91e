// Package embedding turns chunk and query text into vectors through a remote embedding service,
// with retries, throttling and caching around the provider call.
package embedding

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the provider answers without an embedding for every input.
var ErrEmptyResponse = errors.New("embedding service returned no embedding")

// Embedder produces vector embeddings for text. Embed and EmbedBatch embed documents; EmbedQuery
// embeds a search query, which some providers encode differently.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Model() string
	Close() error
}

// Option configures an embedder.
type Option func(*settings)

type settings struct {
	logger *zap.Logger
	cache  Cache
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithCache sets the cache consulted before calling the provider.
func WithCache(c Cache) Option {
	return func(s *settings) { s.cache = c }
}

func applyOptions(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
