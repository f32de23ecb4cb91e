package embedding

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/hyperjump/labia/internal/store"
)

// MockEmbedder is a deterministic embedder for tests. It returns a fixed-dimension
// vector derived from the text hash so that the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int

	// FailWhen, when set, makes every call that includes a matching text fail.
	FailWhen func(text string) bool

	calls atomic.Int64
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.FailWhen != nil && e.FailWhen(text) {
		return nil, fmt.Errorf("mock failure for %q", text)
	}
	return e.vector(text), nil
}

// EmbedBatch embeds texts in one call; the call fails as a whole when any text fails.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if e.FailWhen != nil && e.FailWhen(text) {
			return nil, fmt.Errorf("mock failure for %q", text)
		}
		embeddings[i] = e.vector(text)
	}
	return embeddings, nil
}

// EmbedQuery embeds a query the same way as a document.
func (e *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.Embed(ctx, text)
}

// Calls returns the number of provider calls made so far.
func (e *MockEmbedder) Calls() int64 {
	return e.calls.Load()
}

func (e *MockEmbedder) vector(text string) []float32 {
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	store.Normalize(emb)
	return emb
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the model name used in cache keys.
func (e *MockEmbedder) Model() string {
	return "mock"
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// HashString returns a non-negative polynomial hash of s.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
