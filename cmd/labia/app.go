package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/embedding"
	"github.com/hyperjump/labia/internal/extract"
	"github.com/hyperjump/labia/internal/indexer"
	"github.com/hyperjump/labia/internal/ingest"
	"github.com/hyperjump/labia/internal/keyword"
	"github.com/hyperjump/labia/internal/ranking"
	"github.com/hyperjump/labia/internal/report"
	"github.com/hyperjump/labia/internal/search"
	"github.com/hyperjump/labia/internal/storage"
	"github.com/hyperjump/labia/internal/store"
	"github.com/hyperjump/labia/pkg/utils"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
	debug      bool
}

// app holds the components a command works with.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    store.Store
	embedder embedding.Embedder
	keyword  *keyword.BleveIndex
	ledger   *storage.SQLiteLedger
	writer   *indexer.Writer
	indexer  *indexer.Indexer
	engine   *search.Engine
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// newApp loads the configuration and opens the store, embedder, keyword index and ledger.
func newApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewFileLogger(cfg.Debug, cfg.Ingest.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger
	var err error

	if a.embedder, err = embedding.New(ctx, &cfg.Embedding, logger); err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if a.store, err = store.New(ctx, &cfg.Store, a.embedder.Dimensions(), logger); err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if a.ledger, err = storage.NewSQLiteLedger(cfg.Storage.DatabasePath); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	writerCfg := indexer.WriterConfig{
		Collection: cfg.Store.Collection,
		BatchSize:  cfg.Embedding.BatchSize,
		Logger:     logger,
	}
	searchOpts := []search.Option{search.WithLogger(logger)}
	if !cfg.Keyword.Disabled {
		if a.keyword, err = keyword.NewBleveIndex(cfg.Keyword.Path, keyword.WithLogger(logger)); err != nil {
			return fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		writerCfg.Keyword = a.keyword
		searchOpts = append(searchOpts, search.WithKeywordIndex(a.keyword))
	}

	a.writer = indexer.NewWriter(a.store, a.embedder, writerCfg)
	a.indexer = indexer.NewIndexer(cfg, a.writer,
		indexer.WithLogger(logger),
		indexer.WithExtractor(extract.NewExtractor(&cfg.Extract, extract.WithLogger(logger))))
	if !cfg.Search.Rerank.Disabled {
		searchOpts = append(searchOpts, search.WithRanker(ranking.NewRanker(&cfg.Search.Rerank)))
	}
	a.engine = search.NewEngine(a.store, a.embedder, cfg.Store.Collection, &cfg.Search, searchOpts...)

	logger.Debug("components ready",
		zap.String("collection", cfg.Store.Collection),
		zap.String("store", cfg.Store.Type),
		zap.String("provider", cfg.Embedding.Provider),
		zap.Bool("keyword", a.keyword != nil))
	return nil
}

// orchestrator builds the ingestion orchestrator with the given confirmer.
func (a *app) orchestrator(confirmer ingest.Confirmer) *ingest.Orchestrator {
	return ingest.NewOrchestrator(a.cfg, a.indexer, a.writer,
		ingest.WithLogger(a.logger),
		ingest.WithLedger(a.ledger),
		ingest.WithReporter(report.NewWriter(a.cfg.Ingest.LogDir,
			report.WithWorkbook(a.cfg.Ingest.WorkbookOrDefault()),
			report.WithLogger(a.logger))),
		ingest.WithConfirmer(confirmer))
}

// Close releases every opened component. The memory store is saved here.
func (a *app) Close() {
	if a.keyword != nil {
		if err := a.keyword.Close(); err != nil {
			a.logger.Warn("keyword index close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("vector store close failed", zap.Error(err))
		}
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.ledger != nil {
		_ = a.ledger.Close()
	}
	_ = a.logger.Sync()
}
