package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/embedding"
	"github.com/hyperjump/labia/internal/fileid"
	"github.com/hyperjump/labia/internal/keyword"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/store"
)

// ErrNothingWritten is returned when every chunk of a document failed to embed.
var ErrNothingWritten = errors.New("no chunk of the document could be embedded")

// FailedChunk is a chunk that was skipped because its embedding kept failing.
type FailedChunk struct {
	Index  int    `json:"chunk_index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// WriteResult reports what Write stored for one document.
type WriteResult struct {
	Written int
	Tables  int
	Failed  []FailedChunk
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	Collection string
	BatchSize  int
	// Keyword is optional; when set, written chunks are also indexed for keyword search.
	Keyword keyword.Index
	Logger  *zap.Logger
}

// Writer embeds chunks and replaces a document's entries in the collection. Writes and resets
// are serialized, so a reset never interleaves with a document write.
type Writer struct {
	store      store.Store
	embedder   embedding.Embedder
	keyword    keyword.Index
	collection string
	batchSize  int
	logger     *zap.Logger

	mu sync.Mutex
}

// NewWriter creates a writer for the collection.
func NewWriter(st store.Store, emb embedding.Embedder, cfg WriterConfig) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &Writer{
		store:      st,
		embedder:   emb,
		keyword:    cfg.Keyword,
		collection: cfg.Collection,
		batchSize:  cfg.BatchSize,
		logger:     cfg.Logger,
	}
}

// Collection returns the collection the writer targets.
func (w *Writer) Collection() string { return w.collection }

// Write embeds chunks and stores them as the complete content of docKey. A batch that fails is
// retried one chunk at a time; chunks that still fail are skipped and reported. When ctx ends
// before the store write, nothing is written and the context error is returned.
func (w *Writer) Write(ctx context.Context, docKey string, chunks []models.Chunk) (*WriteResult, error) {
	res := &WriteResult{}
	if len(chunks) == 0 {
		return res, nil
	}
	for i := range chunks {
		chunks[i].DocumentKey = docKey
		chunks[i].ID = fileid.ChunkID(w.collection, docKey, chunks[i].Index)
		chunks[i].Embedding = nil
	}

	for start := 0; start < len(chunks); start += w.batchSize {
		end := start + w.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := w.embed(ctx, chunks[start:end], res); err != nil {
			return nil, err
		}
	}

	embedded := make([]models.Chunk, 0, len(chunks))
	records := make([]store.Record, 0, len(chunks))
	for i := range chunks {
		if chunks[i].Embedding == nil {
			continue
		}
		embedded = append(embedded, chunks[i])
		records = append(records, store.NewRecord(&chunks[i]))
		if chunks[i].TableFlag {
			res.Tables++
		}
	}
	if len(records) == 0 {
		return res, fmt.Errorf("%w: %d chunks failed", ErrNothingWritten, len(res.Failed))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := w.store.ReplaceDocument(ctx, w.collection, docKey, records); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	res.Written = len(records)
	if w.keyword != nil {
		if err := w.keyword.IndexDocument(ctx, docKey, embedded); err != nil && w.logger != nil {
			w.logger.Warn("keyword indexing failed", zap.String("doc_key", docKey), zap.Error(err))
		}
	}
	if w.logger != nil {
		w.logger.Debug("document written",
			zap.String("doc_key", docKey),
			zap.String("collection", w.collection),
			zap.Int("chunks", res.Written),
			zap.Int("failed", len(res.Failed)))
	}
	return res, nil
}

// embed sets the embedding of every chunk in batch that could be embedded and records the rest.
// Only a context error is returned.
func (w *Writer) embed(ctx context.Context, batch []models.Chunk, res *WriteResult) error {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}
	vecs, err := w.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		for i := range batch {
			batch[i].Embedding = vecs[i]
		}
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if w.logger != nil {
		w.logger.Warn("batch embedding failed, retrying per chunk",
			zap.Int("chunks", len(batch)), zap.Error(err))
	}
	for i := range batch {
		v, err := w.embedder.Embed(ctx, batch[i].Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			res.Failed = append(res.Failed, FailedChunk{Index: batch[i].Index, ID: batch[i].ID, Reason: err.Error()})
			if w.logger != nil {
				w.logger.Warn("chunk skipped",
					zap.String("doc_key", batch[i].DocumentKey),
					zap.Int("chunk", batch[i].Index),
					zap.Error(err))
			}
			continue
		}
		batch[i].Embedding = v
	}
	return nil
}

// Delete removes every entry of docKey from the collection and the keyword index.
func (w *Writer) Delete(ctx context.Context, docKey string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.store.DeleteDocument(ctx, w.collection, docKey)
	if err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}
	if w.keyword != nil {
		if err := w.keyword.DeleteDocument(ctx, docKey); err != nil {
			return n, fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	return n, nil
}

// Reset deletes every entry of the collection and returns how many were removed. A collection
// that was never written counts as empty.
func (w *Writer) Reset(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.store.Reset(ctx, w.collection)
	if err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		return 0, fmt.Errorf("failed to reset collection %s: %w", w.collection, err)
	}
	if w.keyword != nil {
		if err := w.keyword.Reset(ctx); err != nil {
			return n, fmt.Errorf("failed to reset keyword index: %w", err)
		}
	}
	if w.logger != nil {
		w.logger.Info("collection reset", zap.String("collection", w.collection), zap.Int64("deleted", n))
	}
	return n, nil
}

// Count returns the number of entries in the collection.
func (w *Writer) Count(ctx context.Context) (int64, error) {
	n, err := w.store.Count(ctx, w.collection)
	if errors.Is(err, store.ErrCollectionNotFound) {
		return 0, nil
	}
	return n, err
}
