package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/pkg/utils"
)

const (
	fieldContent = "content"
	fieldHeading = "heading"
	fieldDocKey  = "doc_key"
	fieldCode    = "codigo_documento"
	fieldSection = "seccion"

	deleteBatch = 500
)

// BleveIndex implements Index using Bleve. Text is accent-folded before indexing and querying,
// so "calculo" matches "cálculo".
type BleveIndex struct {
	index  bleve.Index
	logger *zap.Logger
}

// Option configures a BleveIndex.
type Option func(*BleveIndex)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *BleveIndex) { b.logger = l }
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so codes and standard numbers such as
	// "c109" match exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldContent, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldHeading, textFieldMapping)
	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keywordanalyzer.Name
	keywordFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldDocKey, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(fieldCode, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(fieldSection, keywordFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an in-memory index.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string, opts ...Option) (*BleveIndex, error) {
	b := &BleveIndex{}
	for _, opt := range opts {
		opt(b)
	}
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		b.index = index
		return b, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		b.index = index
		return b, nil
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	b.index = index
	return b, nil
}

// heading is the short field boosted at search time.
func heading(c *models.Chunk) string {
	parts := []string{string(c.Section)}
	if md := c.Metadata; md != nil {
		parts = append(parts, md.DocumentCode)
		parts = append(parts, md.ReferencedStandards...)
	}
	return utils.FoldAccents(strings.Join(parts, " "))
}

// IndexDocument replaces the chunks of docKey in one batch.
func (b *BleveIndex) IndexDocument(ctx context.Context, docKey string, chunks []models.Chunk) error {
	if err := b.DeleteDocument(ctx, docKey); err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for i := range chunks {
		c := &chunks[i]
		doc := map[string]interface{}{
			fieldContent: utils.FoldAccents(c.Text),
			fieldHeading: heading(c),
			fieldDocKey:  docKey,
			fieldSection: string(c.Section),
		}
		if c.Metadata != nil {
			doc[fieldCode] = c.Metadata.DocumentCode
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", c.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index document %s: %w", docKey, err)
	}
	if b.logger != nil {
		b.logger.Debug("keyword index updated", zap.String("doc_key", docKey), zap.Int("chunks", len(chunks)))
	}
	return nil
}

// DeleteDocument removes the chunks of docKey.
func (b *BleveIndex) DeleteDocument(ctx context.Context, docKey string) error {
	q := bleve.NewTermQuery(docKey)
	q.SetField(fieldDocKey)
	_, err := b.deleteMatching(q)
	return err
}

// Reset removes every chunk.
func (b *BleveIndex) Reset(ctx context.Context) error {
	n, err := b.deleteMatching(bleve.NewMatchAllQuery())
	if err == nil && b.logger != nil {
		b.logger.Info("keyword index reset", zap.Int("deleted", n))
	}
	return err
}

func (b *BleveIndex) deleteMatching(q blevequery.Query) (int, error) {
	deleted := 0
	for {
		req := bleve.NewSearchRequest(q)
		req.Size = deleteBatch
		res, err := b.index.Search(req)
		if err != nil {
			return deleted, fmt.Errorf("Bleve search failed: %w", err)
		}
		if len(res.Hits) == 0 {
			return deleted, nil
		}
		batch := b.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return deleted, fmt.Errorf("failed to delete chunks: %w", err)
		}
		deleted += len(res.Hits)
	}
}

// Search runs a match query and returns up to limit results.
// When opts is nil or HeadingBoost <= 1, a single match over heading+content is used.
// When opts.HeadingBoost > 1, separate heading and content queries are merged with additive
// scoring, a term coverage penalty and a phrase proximity boost.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	query = utils.FoldAccents(query)
	headingBoost := 1.0
	phraseBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 2
	if opts == nil {
		opts = &SearchOptions{}
	}
	if opts.HeadingBoost > 0 {
		headingBoost = opts.HeadingBoost
	}
	if opts.PhraseBoost > 0 {
		phraseBoost = opts.PhraseBoost
	}
	fuzzyEnabled = opts.FuzzyEnabled
	if opts.Fuzziness > 0 {
		fuzziness = opts.Fuzziness
	}

	if headingBoost <= 1.0 && phraseBoost <= 1.0 {
		return b.searchSingle(query, limit, fuzzyEnabled, fuzziness, opts)
	}
	return b.searchWithBoosts(query, limit, headingBoost, phraseBoost, fuzzyEnabled, fuzziness, opts)
}

// filtered restricts q to the document code and section of opts.
func filtered(q blevequery.Query, opts *SearchOptions) blevequery.Query {
	conj := []blevequery.Query{q}
	if opts.DocumentCode != "" {
		tq := bleve.NewTermQuery(opts.DocumentCode)
		tq.SetField(fieldCode)
		conj = append(conj, tq)
	}
	if opts.Section != "" {
		tq := bleve.NewTermQuery(opts.Section)
		tq.SetField(fieldSection)
		conj = append(conj, tq)
	}
	if len(conj) == 1 {
		return q
	}
	return bleve.NewConjunctionQuery(conj...)
}

func (b *BleveIndex) run(q blevequery.Query, size int, opts *SearchOptions) (*bleve.SearchResult, error) {
	req := bleve.NewSearchRequest(filtered(q, opts))
	req.Size = size
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	return res, nil
}

func (b *BleveIndex) searchSingle(query string, limit int, fuzzyEnabled bool, fuzziness int, opts *SearchOptions) ([]*KeywordResult, error) {
	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness, "")
	} else {
		q = bleve.NewMatchQuery(query)
	}
	results, err := b.run(q, limit, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

func (b *BleveIndex) searchWithBoosts(query string, limit int, headingBoost, phraseBoost float64, fuzzyEnabled bool, fuzziness int, opts *SearchOptions) ([]*KeywordResult, error) {
	// Request enough from each so merged top "limit" is correct (same chunk can appear in both).
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	terms := tokenizeQuery(query)
	numTerms := len(terms)

	var headingQuery, contentQuery blevequery.Query
	if fuzzyEnabled {
		headingQuery = buildFuzzyQuery(query, fuzziness, fieldHeading)
		contentQuery = buildFuzzyQuery(query, fuzziness, fieldContent)
	} else {
		hq := bleve.NewMatchQuery(query)
		hq.SetField(fieldHeading)
		headingQuery = hq
		cq := bleve.NewMatchQuery(query)
		cq.SetField(fieldContent)
		contentQuery = cq
	}
	headingResults, err := b.run(headingQuery, reqSize, opts)
	if err != nil {
		return nil, err
	}
	contentResults, err := b.run(contentQuery, reqSize, opts)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, hit := range headingResults.Hits {
		scores[hit.ID] += hit.Score * headingBoost
	}
	for _, hit := range contentResults.Hits {
		scores[hit.ID] += hit.Score
	}

	coverage := make(map[string]int)
	if numTerms > 1 {
		coverage = b.termCoverage(terms, reqSize, fuzzyEnabled, fuzziness, opts)
	}
	phrases := make(map[string]bool)
	if phraseBoost > 1.0 && numTerms > 1 {
		phrases = b.phraseMatches(query, reqSize, opts)
	}

	type scored struct {
		id    string
		score float64
	}
	merged := make([]scored, 0, len(scores))
	for id, base := range scores {
		// (matched/total)^2 ranks chunks matching every term above partial matches.
		multiplier := 1.0
		if numTerms > 1 {
			matched := coverage[id]
			if matched == 0 {
				matched = 1
			}
			c := float64(matched) / float64(numTerms)
			multiplier = c * c
		}
		if phrases[id] {
			multiplier *= phraseBoost
		}
		merged = append(merged, scored{id: id, score: base * multiplier})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].id < merged[j].id
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	out := make([]*KeywordResult, len(merged))
	for i, s := range merged {
		out[i] = &KeywordResult{ID: s.id, Score: s.score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
// If field is empty, searches all fields; otherwise restricts to the specified field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// termCoverage counts how many query terms each chunk matches.
func (b *BleveIndex) termCoverage(terms []string, reqSize int, fuzzyEnabled bool, fuzziness int, opts *SearchOptions) map[string]int {
	coverage := make(map[string]int)
	for _, term := range terms {
		var q blevequery.Query
		if fuzzyEnabled {
			q = buildFuzzyQuery(term, fuzziness, "")
		} else {
			q = bleve.NewMatchQuery(term)
		}
		results, err := b.run(q, reqSize, opts)
		if err != nil {
			continue
		}
		for _, hit := range results.Hits {
			coverage[hit.ID]++
		}
	}
	return coverage
}

// phraseMatches finds chunks where the query appears as a phrase in content or heading.
func (b *BleveIndex) phraseMatches(query string, reqSize int, opts *SearchOptions) map[string]bool {
	matches := make(map[string]bool)
	for _, field := range []string{fieldContent, fieldHeading} {
		pq := bleve.NewMatchPhraseQuery(query)
		pq.SetField(field)
		results, err := b.run(pq, reqSize, opts)
		if err != nil {
			continue
		}
		for _, hit := range results.Hits {
			matches[hit.ID] = true
		}
	}
	return matches
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
