package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAIEmbedder calls an OpenAI-compatible embedding endpoint (hosted or a local server) through
// langchaingo.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates an embedder for model at baseURL. An empty token is sent as "none",
// which local servers accept.
func NewOpenAIEmbedder(baseURL, token, model string, dimensions, batchSize int, opts ...Option) (*OpenAIEmbedder, error) {
	if token == "" {
		token = "none"
	}
	clientOpts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	embOpts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if batchSize > 0 {
		embOpts = append(embOpts, embeddings.WithBatchSize(batchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, embOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}
	s := applyOptions(opts)
	return &OpenAIEmbedder{
		embedder:   embedder,
		model:      model,
		dimensions: dimensions,
		logger:     s.logger,
	}, nil
}

// Embed embeds one document text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("openai embed failed", zap.Int("texts", len(texts)), zap.Error(err))
		}
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: asked for %d, got %d", ErrEmptyResponse, len(texts), len(out))
	}
	return out, nil
}

// EmbedQuery embeds a search query.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("openai embed query: %w", err)
	}
	if len(v) == 0 {
		return nil, ErrEmptyResponse
	}
	return v, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Model returns the model name.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Close is a no-op; the HTTP client holds no resources.
func (e *OpenAIEmbedder) Close() error { return nil }
