package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/config"
)

// Type names the store implementation.
type Type string

const (
	// TypeMemory keeps collections in memory, optionally persisted to store.path.
	TypeMemory Type = "memory"
	// TypePGVector writes to PostgreSQL with pgvector in the LangChain layout.
	TypePGVector Type = "pgvector"
)

// New creates the store selected by cfg for vectors of the given dimension.
func New(ctx context.Context, cfg *config.StoreConfig, dimensions int, logger *zap.Logger) (Store, error) {
	switch Type(cfg.Type) {
	case TypeMemory, "":
		return NewMemoryStore(dimensions, cfg.Path)
	case TypePGVector:
		return NewPGVectorStore(ctx, cfg.Postgres.ConnString(), WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown store type: %s (supported: memory, pgvector)", cfg.Type)
	}
}
