// Package storage defines the run ledger: past ingestion runs, their per-file outcomes and the
// documents each collection currently holds.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/labia/internal/models"
)

// ErrNotFound is returned when a run or document is not in the ledger.
var ErrNotFound = errors.New("not found")

// Ledger defines run and document bookkeeping operations.
type Ledger interface {
	// Run operations
	SaveRun(ctx context.Context, run *models.IngestionRun) error
	GetRun(ctx context.Context, id string) (*models.IngestionRun, error)
	// ListRuns returns runs newest first, without their per-file outcomes.
	ListRuns(ctx context.Context, offset, limit int) ([]*models.IngestionRun, error)

	// Document operations
	SaveDocument(ctx context.Context, doc *models.IndexedDocument) error
	GetDocument(ctx context.Context, collection, docKey string) (*models.IndexedDocument, error)
	DeleteDocument(ctx context.Context, collection, docKey string) error
	ClearDocuments(ctx context.Context, collection string) (int64, error)
	ListDocuments(ctx context.Context, collection string, offset, limit int) ([]*models.IndexedDocument, error)

	// Stats
	CountDocuments(ctx context.Context, collection string) (int64, error)
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
