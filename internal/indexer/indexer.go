package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/clean"
	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/extract"
	"github.com/hyperjump/labia/internal/fileid"
	"github.com/hyperjump/labia/internal/metadata"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/segment"
	"github.com/hyperjump/labia/internal/units"
)

// ErrNoChunks is returned when a document yields no chunk to write.
var ErrNoChunks = errors.New("document produced no chunks")

// Indexer runs one PDF through extraction, cleaning, unit normalization, metadata extraction,
// segmentation and chunking, then hands the chunks to the writer. It is safe for concurrent use.
type Indexer struct {
	extractor  *extract.Extractor
	cleaner    *clean.Cleaner
	normalizer *units.Normalizer
	metadata   *metadata.Extractor
	segmenter  *segment.Segmenter
	chunker    *Chunker
	writer     *Writer
	root       string      // source directory; document keys and names are relative to it
	logger     *zap.Logger // optional; when set, logs per-file events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for the indexer and the pipeline stages it builds.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithExtractor replaces the extractor built from the configuration.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// NewIndexer builds the pipeline stages from cfg. writer may be nil when only Prepare is used.
func NewIndexer(cfg *config.Config, writer *Writer, opts ...IndexerOption) *Indexer {
	idx := &Indexer{writer: writer, root: cfg.Source.Directory}
	for _, opt := range opts {
		opt(idx)
	}
	l := idx.logger
	if idx.extractor == nil {
		idx.extractor = extract.NewExtractor(&cfg.Extract, extract.WithLogger(l))
	}
	idx.cleaner = clean.NewCleaner(&cfg.Clean, clean.WithLogger(l))
	idx.normalizer = units.NewNormalizer()
	idx.metadata = metadata.NewExtractor(metadata.WithLogger(l))
	idx.segmenter = segment.NewSegmenter(segment.WithLogger(l))
	idx.chunker = NewChunker(cfg.Chunk.Size, cfg.Chunk.Overlap, WithMeasurements(idx.normalizer))
	return idx
}

// Prepared is a document ready to be written.
type Prepared struct {
	DocumentKey string
	Metadata    *models.DocumentMetadata
	Sections    []models.Section
	Chunks      []models.Chunk
	Pages       int
	FailedPages []int
	Notes       []string
}

// Tables returns the number of table chunks.
func (p *Prepared) Tables() int {
	n := 0
	for i := range p.Chunks {
		if p.Chunks[i].TableFlag {
			n++
		}
	}
	return n
}

// Prepare runs every stage up to chunking. Narrative blocks get inline SI annotations; table
// blocks are kept verbatim.
func (idx *Indexer) Prepare(ctx context.Context, path string) (*Prepared, error) {
	res, err := idx.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	doc := models.NewCleanedDocument(path, filepath.Base(path), res.PageCount, res.Blocks, res.Notes)
	doc = idx.cleaner.Clean(doc)
	for i := range doc.Blocks {
		if doc.Blocks[i].IsTable() {
			continue
		}
		doc.Blocks[i].Text, _ = idx.normalizer.Normalize(doc.Blocks[i].Text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fileid.DocumentKey(idx.root, path)
	meta := idx.metadata.ExtractDocument(doc)
	sections := idx.segmenter.Segment(doc)
	return &Prepared{
		DocumentKey: key,
		Metadata:    meta,
		Sections:    sections,
		Chunks:      idx.chunker.Chunk(key, sections, meta),
		Pages:       res.PageCount,
		FailedPages: res.FailedPages,
		Notes:       doc.Notes,
	}, nil
}

// IndexFile processes one PDF and writes its chunks. Failures never escape: they are reported in
// the outcome, which is cancelled when ctx ended before the document was written.
func (idx *Indexer) IndexFile(ctx context.Context, path string) models.FileOutcome {
	start := time.Now()
	out := models.FileOutcome{File: fileid.RelativeName(idx.root, path), DocumentKey: fileid.DocumentKey(idx.root, path)}
	if idx.logger != nil {
		idx.logger.Debug("indexing file", zap.String("file", out.File))
	}

	p, err := idx.Prepare(ctx, path)
	if err == nil && len(p.Chunks) == 0 {
		err = ErrNoChunks
	}
	var res *WriteResult
	if err == nil {
		out.Pages = p.Pages
		out.Notes = p.Notes
		if p.Metadata != nil {
			out.DocumentCode = p.Metadata.DocumentCode
			out.LowConfidence = p.Metadata.LowConfidence
		}
		res, err = idx.writer.Write(ctx, p.DocumentKey, p.Chunks)
	}
	out.Duration = time.Since(start)
	if err != nil {
		return idx.failed(ctx, out, err)
	}

	out.Chunks = res.Written
	out.Tables = res.Tables
	out.FailedChunks = len(res.Failed)
	out.Status = models.FileSuccess
	if out.FailedChunks > 0 {
		out.Status = models.FilePartial
		out.Reason = fmt.Sprintf("%d of %d chunks failed to embed", out.FailedChunks, len(p.Chunks))
	}
	if idx.logger != nil {
		idx.logger.Info("file indexed",
			zap.String("file", out.File),
			zap.String("code", out.DocumentCode),
			zap.Int("pages", out.Pages),
			zap.Int("chunks", out.Chunks),
			zap.Int("tables", out.Tables),
			zap.Int("failed_chunks", out.FailedChunks),
			zap.Duration("took", out.Duration))
	}
	return out
}

func (idx *Indexer) failed(ctx context.Context, out models.FileOutcome, err error) models.FileOutcome {
	out.Status = models.FileFailed
	out.Reason = err.Error()
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		out.Status = models.FileCancelled
		out.Reason = "cancelled before the document was written"
	}
	if idx.logger != nil {
		idx.logger.Warn("file not indexed",
			zap.String("file", out.File),
			zap.String("status", string(out.Status)),
			zap.Error(err))
	}
	return out
}

// DeleteFile removes the chunks of the PDF at path.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) (int64, error) {
	key := fileid.DocumentKey(idx.root, path)
	n, err := idx.writer.Delete(ctx, key)
	if err != nil {
		return n, err
	}
	if idx.logger != nil {
		idx.logger.Debug("document deleted", zap.String("file", fileid.RelativeName(idx.root, path)), zap.Int64("chunks", n))
	}
	return n, nil
}
