package ranking

import (
	"sort"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
)

// Ranker adds content and metadata evidence to fused retrieval scores.
type Ranker struct {
	config         *config.RerankConfig
	analyzer       *QueryAnalyzer
	contentScorer  *ContentScorer
	metadataScorer *MetadataScorer
	multipliers    []Multiplier
}

// NewRanker creates a new Ranker. A nil config uses the defaults.
func NewRanker(cfg *config.RerankConfig) *Ranker {
	if cfg == nil {
		cfg = &config.RerankConfig{}
	}
	cfg.ApplyDefaults()
	analyzer := NewQueryAnalyzer()
	return &Ranker{
		config:         cfg,
		analyzer:       analyzer,
		contentScorer:  NewContentScorer(cfg, analyzer),
		metadataScorer: NewMetadataScorer(cfg),
		multipliers:    DefaultMultipliers(cfg, analyzer),
	}
}

// AnalyzeQuery parses and analyzes a query string.
func (r *Ranker) AnalyzeQuery(query string) *AnalyzedQuery {
	return r.analyzer.Analyze(query)
}

// Score computes base + Wc*content + Wm*metadata and applies the multipliers.
func (r *Ranker) Score(query *AnalyzedQuery, hit *models.SearchHit) float64 {
	return r.RankWithBreakdown(query, hit).FinalScore
}

// RankWithBreakdown returns detailed scoring information.
func (r *Ranker) RankWithBreakdown(query *AnalyzedQuery, hit *models.SearchHit) *ScoreBreakdown {
	ctx := NewScoringContext(query, hit)
	b := &ScoreBreakdown{
		BaseScore:     hit.Score,
		ContentScore:  r.contentScorer.Score(ctx),
		MetadataScore: r.metadataScorer.Score(ctx),
		Multipliers:   make(map[string]float64, len(r.multipliers)),
		MatchType:     matchType(ctx, r.analyzer),
	}
	score := b.BaseScore + r.config.ContentWeight*b.ContentScore + r.config.MetadataWeight*b.MetadataScore
	for _, m := range r.multipliers {
		prev := score
		score = m.Multiply(ctx, score)
		if prev != 0 {
			b.Multipliers[m.Name()] = score / prev
		} else {
			b.Multipliers[m.Name()] = 1.0
		}
	}
	b.FinalScore = score
	return b
}

// ReRank rescores hits in place and returns them best first with ranks renumbered. Ties keep
// their incoming order.
func (r *Ranker) ReRank(query string, hits []*models.SearchHit) []*models.SearchHit {
	if len(hits) == 0 {
		return hits
	}
	analyzed := r.AnalyzeQuery(query)
	for _, hit := range hits {
		hit.Score = r.Score(analyzed, hit)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	for i, hit := range hits {
		hit.Rank = i + 1
	}
	return hits
}
