// Package search serves retrieval over the ingested collection: semantic similarity with
// optional keyword fusion.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/embedding"
	"github.com/hyperjump/labia/internal/keyword"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/ranking"
	"github.com/hyperjump/labia/internal/store"
)

// Engine runs retrieval against one collection.
type Engine struct {
	store      store.Store
	embedder   embedding.Embedder
	keyword    keyword.Index
	ranker     *ranking.Ranker
	collection string
	config     *config.SearchConfig
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for query timings.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithKeywordIndex enables keyword fusion through idx.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(e *Engine) { e.keyword = idx }
}

// WithRanker re-ranks fused candidates with query metadata before the top-K cut.
func WithRanker(r *ranking.Ranker) Option {
	return func(e *Engine) { e.ranker = r }
}

// NewEngine creates a search engine over collection.
func NewEngine(st store.Store, emb embedding.Embedder, collection string, cfg *config.SearchConfig, opts ...Option) *Engine {
	e := &Engine{
		store:      st,
		embedder:   emb,
		collection: collection,
		config:     cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns the top-K chunks for the query, best first. A collection that was never written
// yields an empty response.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}
	candidates := e.config.Candidates
	if candidates < query.TopK {
		candidates = query.TopK
	}
	keywordWeight, semanticWeight := weights(query, e.config, e.keyword != nil)

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []store.Match
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if keywordWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.keyword.Search(ctx, query.Query, candidates, &keyword.SearchOptions{
				HeadingBoost: 1.5,
				FuzzyEnabled: true,
				DocumentCode: query.DocumentCode,
				Section:      string(query.Section),
			})
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if semanticWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := e.embedder.EmbedQuery(ctx, query.Query)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			filter := store.Filter{DocumentCode: query.DocumentCode, Section: string(query.Section)}
			results, err := e.store.Search(ctx, e.collection, queryEmbedding, candidates, filter)
			if err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticResults = results
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	records := make(map[string]store.Record, len(semanticResults))
	for _, m := range semanticResults {
		records[m.ID] = m.Record
	}
	fused := Fuse(NormalizeKeywordScores(keywordResults), NormalizeSemanticScores(semanticResults), keywordWeight, semanticWeight)
	if query.MinScore > 0 {
		filtered := fused[:0]
		for _, r := range fused {
			if r.Score >= query.MinScore {
				filtered = append(filtered, r)
			}
		}
		fused = filtered
	}

	top := fused
	limit := query.TopK
	if e.ranker != nil {
		limit = candidates
	}
	if len(top) > limit {
		top = top[:limit]
	}
	if err := e.loadMissing(ctx, top, records); err != nil {
		return nil, err
	}

	hits := make([]*models.SearchHit, 0, len(top))
	for _, r := range top {
		rec, ok := records[r.ID]
		if !ok {
			continue
		}
		hit := HitFromRecord(rec)
		hit.Score = r.Score
		hit.KeywordScore = r.KeywordScore
		hit.SemanticScore = r.SemanticScore
		hit.Rank = len(hits) + 1
		hits = append(hits, hit)
	}
	if e.ranker != nil {
		hits = e.ranker.ReRank(query.Query, hits)
	}
	if len(hits) > query.TopK {
		hits = hits[:query.TopK]
	}

	response := &models.SearchResponse{
		Query:      query.Query,
		Collection: e.collection,
		Hits:       hits,
		Total:      len(fused),
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	if e.logger != nil {
		e.logger.Debug("search served",
			zap.String("query", query.Query),
			zap.Int("hits", len(response.Hits)),
			zap.Int64("took_ms", response.QueryTime))
	}
	return response, nil
}

// loadMissing fetches the records of keyword-only hits.
func (e *Engine) loadMissing(ctx context.Context, top []*FusedResult, records map[string]store.Record) error {
	var ids []string
	for _, r := range top {
		if _, ok := records[r.ID]; !ok {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	recs, err := e.store.Get(ctx, e.collection, ids)
	if err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		return fmt.Errorf("failed to load chunks: %w", err)
	}
	for _, rec := range recs {
		records[rec.ID] = rec
	}
	return nil
}

// HitFromRecord builds a hit from the stored text and metadata of a chunk.
func HitFromRecord(rec store.Record) *models.SearchHit {
	md := rec.Metadata
	return &models.SearchHit{
		ChunkID:             rec.ID,
		Text:                rec.Text,
		DocumentCode:        stringValue(md, "codigo_documento"),
		Section:             stringValue(md, "seccion"),
		ReferencedStandards: stringValue(md, "normas"),
		Revision:            stringValue(md, "revision"),
		SourceFile:          stringValue(md, "source"),
		Page:                intValue(md, "page"),
		TableFlag:           stringValue(md, "tipo_contenido") == models.ContentTypeTable,
		Metadata:            md,
	}
}

func stringValue(md map[string]interface{}, key string) string {
	s, _ := md[key].(string)
	return s
}

// intValue reads integers stored natively or decoded from JSON.
func intValue(md map[string]interface{}, key string) int {
	switch n := md[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Collection returns the collection the engine searches.
func (e *Engine) Collection() string { return e.collection }

// Size returns the number of chunks in the collection.
func (e *Engine) Size(ctx context.Context) (int64, error) {
	n, err := e.store.Count(ctx, e.collection)
	if errors.Is(err, store.ErrCollectionNotFound) {
		return 0, nil
	}
	return n, err
}

// KeywordEnabled reports whether keyword fusion is available.
func (e *Engine) KeywordEnabled() bool { return e.keyword != nil }
