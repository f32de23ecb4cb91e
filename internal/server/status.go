package server

import (
	"context"
	"fmt"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/search"
	"github.com/hyperjump/labia/internal/storage"
)

// Status summarizes the collection and the pipeline state on disk.
type Status struct {
	Collection     string               `json:"collection"`
	Chunks         int64                `json:"chunks"`
	Documents      int64                `json:"documents"`
	Runs           int64                `json:"runs"`
	LastRun        *models.IngestionRun `json:"last_run,omitempty"`
	KeywordEnabled bool                 `json:"keyword_enabled"`
	StoreType      string               `json:"store_type"`
	EmbeddingModel string               `json:"embedding_model"`
	Dimensions     int                  `json:"embedding_dimensions"`
	ChunkSize      int                  `json:"chunk_size"`
	ChunkOverlap   int                  `json:"chunk_overlap"`
	Disk           []storage.Usage      `json:"disk"`
	DiskBytes      int64                `json:"disk_usage_bytes"`
}

// CollectStatus gathers the status served by the API and printed by the CLI.
func CollectStatus(ctx context.Context, engine *search.Engine, ledger storage.Ledger, cfg *config.Config) (*Status, error) {
	st := &Status{
		Collection:     engine.Collection(),
		KeywordEnabled: engine.KeywordEnabled(),
		StoreType:      cfg.Store.Type,
		EmbeddingModel: cfg.Embedding.Model,
		Dimensions:     cfg.Embedding.Dimensions,
		ChunkSize:      cfg.Chunk.Size,
		ChunkOverlap:   cfg.Chunk.Overlap,
	}
	var err error
	if st.Chunks, err = engine.Size(ctx); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	if ledger != nil {
		if st.Documents, err = ledger.CountDocuments(ctx, st.Collection); err != nil {
			return nil, fmt.Errorf("count documents: %w", err)
		}
		if st.Runs, err = ledger.CountRuns(ctx); err != nil {
			return nil, fmt.Errorf("count runs: %w", err)
		}
		runs, err := ledger.ListRuns(ctx, 0, 1)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if len(runs) > 0 {
			st.LastRun = runs[0]
		}
	}

	entries := []storage.Usage{
		{Component: "ledger", Path: cfg.Storage.DatabasePath},
		{Component: "embedding_cache", Path: cfg.Embedding.Cache.Path},
		{Component: "logs", Path: cfg.Ingest.LogDir},
	}
	if !cfg.Keyword.Disabled {
		entries = append(entries, storage.Usage{Component: "keyword_index", Path: cfg.Keyword.Path})
	}
	if cfg.Store.Type == "memory" {
		entries = append(entries, storage.Usage{Component: "vector_store", Path: cfg.Store.Path})
	}
	if st.Disk, st.DiskBytes, err = storage.DiskUsage(entries); err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	return st, nil
}
