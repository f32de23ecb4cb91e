package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/config"
)

// Provider names accepted in embedding.provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// New builds the configured provider wrapped in a ResilientEmbedder with the configured cache.
func New(ctx context.Context, cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case ProviderGemini, "":
		inner, err = NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.QueryModel, cfg.Dimensions, WithLogger(logger))
	case ProviderOpenAI:
		inner, err = NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions, cfg.BatchSize, WithLogger(logger))
	case ProviderMock:
		inner = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	cache, err := newCache(&cfg.Cache, logger)
	if err != nil {
		_ = inner.Close()
		return nil, err
	}
	if logger != nil {
		logger.Info("embedder ready",
			zap.String("provider", cfg.Provider),
			zap.String("model", inner.Model()),
			zap.Int("dimensions", inner.Dimensions()),
			zap.String("cache", cfg.Cache.Type))
	}
	return NewResilientEmbedder(inner, cfg, WithCache(cache), WithLogger(logger)), nil
}

func newCache(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewEmbeddingCache(cfg.Size), nil
	case "disk":
		c, err := NewDiskCache(cfg.Path, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown embedding cache type %q", cfg.Type)
	}
}
