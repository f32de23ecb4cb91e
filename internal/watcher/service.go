package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/ingest"
	"github.com/hyperjump/labia/internal/models"
)

// Ingester re-ingests or removes single files.
type Ingester interface {
	Run(ctx context.Context, req ingest.Request) (*models.IngestionRun, error)
	Remove(ctx context.Context, path string) (int64, error)
}

// Service feeds watcher events to an Ingester.
type Service struct {
	watcher  *Watcher
	ingester Ingester
	logger   *zap.Logger

	ctx    context.Context
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService creates a service watching root.
func NewService(root string, recursive bool, ing Ingester, opts ...Option) *Service {
	s := &Service{ingester: ing}
	s.watcher = NewWatcher(root, recursive, s.index, s.remove, opts...)
	s.logger = s.watcher.logger
	return s
}

// Run watches until ctx is cancelled. With syncExisting every PDF already present is ingested
// first.
func (s *Service) Run(ctx context.Context, syncExisting bool) error {
	s.ctx = ctx
	if err := s.watcher.Start(ctx); err != nil {
		return err
	}
	if syncExisting {
		s.watcher.SyncExisting()
	}
	if s.logger != nil {
		s.logger.Info("watching for changes", zap.String("root", s.watcher.Root()))
	}
	<-ctx.Done()
	s.watcher.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// begin registers an in-flight callback unless the service is shutting down.
func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Service) index(path string) {
	if !s.begin() {
		return
	}
	defer s.wg.Done()
	run, err := s.ingester.Run(s.ctx, ingest.Request{Files: []string{path}, Mode: models.ModeWatch})
	if err != nil && !errors.Is(err, context.Canceled) {
		if s.logger != nil {
			s.logger.Error("re-ingest failed", zap.String("file", filepath.Base(path)), zap.Error(err))
		}
		return
	}
	if s.logger != nil && run != nil && len(run.Outcomes) == 1 {
		o := run.Outcomes[0]
		s.logger.Info("file re-ingested",
			zap.String("file", o.File),
			zap.String("status", string(o.Status)),
			zap.Int("chunks", o.Chunks),
			zap.String("reason", o.Reason))
	}
}

func (s *Service) remove(path string) {
	if !s.begin() {
		return
	}
	defer s.wg.Done()
	if _, err := s.ingester.Remove(s.ctx, path); err != nil && s.logger != nil {
		s.logger.Error("remove failed", zap.String("file", filepath.Base(path)), zap.Error(err))
	}
}
