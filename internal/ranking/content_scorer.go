package ranking

import "github.com/hyperjump/labia/internal/config"

// ContentScorer scores how completely the chunk text contains the query.
type ContentScorer struct {
	config   *config.RerankConfig
	analyzer *QueryAnalyzer
}

// NewContentScorer creates a new ContentScorer with the given config.
func NewContentScorer(cfg *config.RerankConfig, analyzer *QueryAnalyzer) *ContentScorer {
	return &ContentScorer{config: cfg, analyzer: analyzer}
}

// Name returns the scorer name.
func (s *ContentScorer) Name() string {
	return "content"
}

// Score returns 1 for a phrase match, the matched fraction of terms otherwise.
func (s *ContentScorer) Score(ctx *ScoringContext) float64 {
	switch matchType(ctx, s.analyzer) {
	case MatchTypePhrase:
		return 1
	case MatchTypeAllWords:
		return 0.8
	case MatchTypePartial:
		tokens := s.analyzer.TokenizeForMatching(ctx.Query)
		return 0.6 * float64(CountMatchingTerms(tokens, ctx.Content)) / float64(len(tokens))
	default:
		return 0
	}
}

// matchType determines the best match type of the query against the chunk text.
func matchType(ctx *ScoringContext, analyzer *QueryAnalyzer) MatchType {
	if ctx.Query == nil || ctx.Hit == nil {
		return MatchTypeNone
	}
	for _, phrase := range ctx.Query.Phrases {
		if AllTermsMatch([]string{phrase}, ctx.Content) {
			return MatchTypePhrase
		}
	}
	tokens := analyzer.TokenizeForMatching(ctx.Query)
	if len(tokens) == 0 {
		return MatchTypeNone
	}
	if AllTermsMatch(tokens, ctx.Content) {
		if len(ctx.Query.Phrases) == 0 && len(tokens) > 1 && TermsInOrder(tokens, ctx.Content) {
			return MatchTypePhrase
		}
		return MatchTypeAllWords
	}
	if CountMatchingTerms(tokens, ctx.Content) > 0 {
		return MatchTypePartial
	}
	return MatchTypeNone
}
