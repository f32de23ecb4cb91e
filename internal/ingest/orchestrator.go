// Package ingest drives a full ingestion run: file selection, the reset confirmation, bounded
// parallel indexing and the run summary.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/fileid"
	"github.com/hyperjump/labia/internal/indexer"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/report"
	"github.com/hyperjump/labia/internal/storage"
)

// Request selects what a run processes.
type Request struct {
	Reset bool
	// Patterns restricts the run to PDFs whose base name matches one of the globs.
	Patterns []string
	// Files, when set, is processed as given instead of scanning the source directory.
	Files []string
	Mode  models.RunMode
}

// FileIndexer indexes and removes single documents.
type FileIndexer interface {
	IndexFile(ctx context.Context, path string) models.FileOutcome
	DeleteFile(ctx context.Context, path string) (int64, error)
}

// Orchestrator runs ingestion over the source directory.
type Orchestrator struct {
	cfg       *config.Config
	indexer   FileIndexer
	writer    *indexer.Writer
	ledger    storage.Ledger
	reporter  *report.Writer
	confirmer Confirmer
	logger    *zap.Logger

	runMu sync.Mutex

	mu    sync.Mutex
	abort context.CancelFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithLedger records runs and indexed documents in l.
func WithLedger(l storage.Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

// WithReporter writes run artifacts with r.
func WithReporter(r *report.Writer) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithConfirmer sets who approves a reset. Without one every reset is declined.
func WithConfirmer(c Confirmer) Option {
	return func(o *Orchestrator) { o.confirmer = c }
}

// NewOrchestrator creates an orchestrator. writer must be the writer idx stores through.
func NewOrchestrator(cfg *config.Config, idx FileIndexer, writer *indexer.Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, indexer: idx, writer: writer}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one ingestion run. Cancelling ctx stops scheduling new files; documents already in
// flight finish unless Abort is called. The returned run is non-nil whenever processing started.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.IngestionRun, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if req.Mode == "" {
		req.Mode = models.ModeFull
		if len(req.Patterns) > 0 {
			req.Mode = models.ModeTest
		}
	}
	run := &models.IngestionRun{
		ID:         uuid.NewString(),
		Mode:       req.Mode,
		Reset:      req.Reset,
		Collection: o.writer.Collection(),
		State:      models.StateIdle,
		StartedAt:  time.Now(),
	}
	logger := o.logger
	if logger != nil {
		logger = logger.With(zap.String("run_id", run.ID), zap.String("collection", run.Collection))
	}

	files := req.Files
	if len(files) == 0 {
		var err error
		files, err = SelectFiles(o.cfg.Source.Directory, o.cfg.Source.RecursiveOrDefault(), req.Patterns)
		if err != nil {
			return nil, fmt.Errorf("failed to select files: %w", err)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, o.cfg.Source.Directory)
	}
	run.Files = make([]string, len(files))
	for i, f := range files {
		run.Files[i] = o.name(f)
	}
	run.Counts.FilesTotal = len(files)

	if req.Reset {
		run.State = models.StateConfirmReset
		if err := o.confirmReset(ctx, run); err != nil {
			run.State = models.StateAborted
			return run, err
		}
		if err := o.reset(ctx, run, logger); err != nil {
			run.State = models.StateAborted
			return run, err
		}
	}

	run.State = models.StateProcessing
	if logger != nil {
		logger.Info("ingestion started",
			zap.String("mode", string(run.Mode)),
			zap.Int("files", len(files)),
			zap.Int("workers", o.cfg.Ingest.Workers))
	}
	o.process(ctx, run, files, logger)

	run.State = models.StateSummary
	run.FinishedAt = time.Now()
	if logger != nil {
		logger.Info("ingestion finished",
			zap.Int("processed", run.Counts.FilesProcessed),
			zap.Int("failed", run.Counts.FilesFailed),
			zap.Int("skipped", run.Counts.FilesSkipped),
			zap.Int("chunks", run.Counts.ChunksCreated),
			zap.Int("chunks_failed", run.Counts.ChunksFailed),
			zap.Int("tables", run.Counts.TablesProcessed),
			zap.Bool("cancelled", run.Cancelled))
	}
	return run, o.persist(ctx, run, logger)
}

func (o *Orchestrator) confirmReset(ctx context.Context, run *models.IngestionRun) error {
	if o.confirmer == nil {
		return ErrResetDeclined
	}
	prompt := fmt.Sprintf("This deletes every entry of collection %q before ingesting %d files.",
		run.Collection, len(run.Files))
	ok, err := o.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetDeclined, err)
	}
	if !ok {
		return ErrResetDeclined
	}
	return nil
}

func (o *Orchestrator) reset(ctx context.Context, run *models.IngestionRun, logger *zap.Logger) error {
	n, err := o.writer.Reset(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	run.ResetCount = n
	if o.ledger != nil {
		if _, err := o.ledger.ClearDocuments(ctx, run.Collection); err != nil && logger != nil {
			logger.Warn("failed to clear document ledger", zap.Error(err))
		}
	}
	if logger != nil {
		logger.Info("collection reset", zap.Int64("deleted", n))
	}
	return nil
}

// process indexes files with bounded parallelism. Outcomes flow to a single aggregator that owns
// the run counters and the document ledger.
func (o *Orchestrator) process(ctx context.Context, run *models.IngestionRun, files []string, logger *zap.Logger) {
	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	o.mu.Lock()
	o.abort = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.abort = nil
		o.mu.Unlock()
	}()

	outcomes := make(chan models.FileOutcome, len(files))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for out := range outcomes {
			run.Record(out)
			o.recordDocument(workCtx, run, out, logger)
		}
	}()

	workers := o.cfg.Ingest.Workers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, path := range files {
		if ctx.Err() != nil || workCtx.Err() != nil {
			outcomes <- models.FileOutcome{
				File:        o.name(path),
				DocumentKey: o.key(path),
				Status:      models.FileCancelled,
				Reason:      "run cancelled before the file was scheduled",
			}
			continue
		}
		path := path
		g.Go(func() error {
			outcomes <- o.processFile(workCtx, run, path, logger)
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)
	<-done

	run.Cancelled = ctx.Err() != nil || workCtx.Err() != nil
	order := make(map[string]int, len(files))
	for i, f := range files {
		order[o.name(f)] = i
	}
	sort.SliceStable(run.Outcomes, func(i, j int) bool {
		return order[run.Outcomes[i].File] < order[run.Outcomes[j].File]
	})
}

// name labels a file in outcomes and logs by its path relative to the source directory.
func (o *Orchestrator) name(path string) string {
	return fileid.RelativeName(o.cfg.Source.Directory, path)
}

func (o *Orchestrator) key(path string) string {
	return fileid.DocumentKey(o.cfg.Source.Directory, path)
}

// processFile indexes one document. A panic inside the pipeline becomes the file's failure.
func (o *Orchestrator) processFile(ctx context.Context, run *models.IngestionRun, path string, logger *zap.Logger) (out models.FileOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = models.FileOutcome{
				File:        o.name(path),
				DocumentKey: o.key(path),
				Status:      models.FileFailed,
				Reason:      fmt.Sprintf("internal error: %v", r),
				Duration:    time.Since(start),
			}
			if logger != nil {
				logger.Error("panic while indexing", zap.String("file", out.File), zap.Any("panic", r))
			}
		}
	}()

	hash, err := fileid.FileHash(path)
	if err != nil {
		return models.FileOutcome{
			File:        o.name(path),
			DocumentKey: o.key(path),
			Status:      models.FileFailed,
			Reason:      err.Error(),
		}
	}
	if o.unchanged(ctx, run, path, hash) {
		if logger != nil {
			logger.Debug("file unchanged, skipping", zap.String("file", o.name(path)))
		}
		return models.FileOutcome{
			File:        o.name(path),
			DocumentKey: o.key(path),
			FileHash:    hash,
			Status:      models.FileSkipped,
			Reason:      "unchanged since the last run",
		}
	}

	out = o.indexer.IndexFile(ctx, path)
	out.FileHash = hash
	return out
}

func (o *Orchestrator) unchanged(ctx context.Context, run *models.IngestionRun, path, hash string) bool {
	if !o.cfg.Ingest.SkipUnchanged || run.Reset || o.ledger == nil {
		return false
	}
	doc, err := o.ledger.GetDocument(ctx, run.Collection, o.key(path))
	if err != nil {
		return false
	}
	return doc.FileHash == hash
}

func (o *Orchestrator) recordDocument(ctx context.Context, run *models.IngestionRun, out models.FileOutcome, logger *zap.Logger) {
	if o.ledger == nil || (out.Status != models.FileSuccess && out.Status != models.FilePartial) {
		return
	}
	doc := &models.IndexedDocument{
		DocumentKey:  out.DocumentKey,
		Collection:   run.Collection,
		File:         out.File,
		FileHash:     out.FileHash,
		DocumentCode: out.DocumentCode,
		Chunks:       out.Chunks,
		Tables:       out.Tables,
		RunID:        run.ID,
	}
	if err := o.ledger.SaveDocument(ctx, doc); err != nil && logger != nil {
		logger.Warn("failed to record document", zap.String("file", out.File), zap.Error(err))
	}
}

// persist writes the run artifacts and the ledger entry.
func (o *Orchestrator) persist(ctx context.Context, run *models.IngestionRun, logger *zap.Logger) error {
	var errs []error
	if o.reporter != nil {
		if _, err := o.reporter.Write(run); err != nil {
			errs = append(errs, err)
		}
	}
	if o.ledger != nil {
		if err := o.ledger.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			errs = append(errs, fmt.Errorf("failed to save run: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil && logger != nil {
		logger.Error("failed to persist run", zap.Error(err))
	}
	return err
}

// Abort cancels the documents of the current run that have not been written yet. It reports
// whether a run was processing.
func (o *Orchestrator) Abort() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.abort == nil {
		return false
	}
	o.abort()
	return true
}

// Remove deletes the chunks of the PDF at path and its ledger entry.
func (o *Orchestrator) Remove(ctx context.Context, path string) (int64, error) {
	n, err := o.indexer.DeleteFile(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", o.name(path), err)
	}
	if o.ledger != nil {
		if err := o.ledger.DeleteDocument(ctx, o.writer.Collection(), o.key(path)); err != nil {
			return n, fmt.Errorf("failed to delete ledger entry: %w", err)
		}
	}
	if o.logger != nil {
		o.logger.Info("document removed", zap.String("file", o.name(path)), zap.Int64("chunks", n))
	}
	return n, nil
}
