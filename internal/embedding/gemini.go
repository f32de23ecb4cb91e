package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiEmbedder calls the Google Generative Language embedding API. Documents are embedded with
// the retrieval-document task type and queries with retrieval-query.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	queryModel string
	dimensions int
	logger     *zap.Logger
}

// NewGeminiEmbedder creates a client for model. queryModel defaults to model.
func NewGeminiEmbedder(ctx context.Context, apiKey, model, queryModel string, dimensions int, opts ...Option) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if model == "" {
		model = "models/embedding-001"
	}
	if queryModel == "" {
		queryModel = model
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	s := applyOptions(opts)
	return &GeminiEmbedder{
		client:     cl,
		model:      model,
		queryModel: queryModel,
		dimensions: dimensions,
		logger:     s.logger,
	}, nil
}

func (g *GeminiEmbedder) embeddingModel(name string, task genai.TaskType) *genai.EmbeddingModel {
	em := g.client.EmbeddingModel(name)
	em.TaskType = task
	return em
}

// Embed embeds one document text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	em := g.embeddingModel(g.model, genai.TaskTypeRetrievalDocument)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds all texts in one BatchEmbedContents request.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	em := g.embeddingModel(g.model, genai.TaskTypeRetrievalDocument)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: asked for %d", ErrEmptyResponse, len(texts))
	}
	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, ErrEmptyResponse
		}
		out = append(out, e.Values)
	}
	if g.logger != nil {
		g.logger.Debug("gemini batch embedded", zap.Int("texts", len(texts)), zap.String("model", g.model))
	}
	return out, nil
}

// EmbedQuery embeds a search query with the query model.
func (g *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := g.embeddingModel(g.queryModel, genai.TaskTypeRetrievalQuery)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed query: %w", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Embedding.Values, nil
}

// Dimensions returns the configured embedding dimension.
func (g *GeminiEmbedder) Dimensions() int { return g.dimensions }

// Model returns the document model name.
func (g *GeminiEmbedder) Model() string { return g.model }

// Close releases the client.
func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
