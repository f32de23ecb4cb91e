package ranking

import (
	"strings"

	"github.com/hyperjump/labia/internal/config"
)

// QueryQualityMultiplier boosts chunks containing a quoted phrase or all terms in order.
type QueryQualityMultiplier struct {
	config   *config.RerankConfig
	analyzer *QueryAnalyzer
}

// NewQueryQualityMultiplier creates a new QueryQualityMultiplier.
func NewQueryQualityMultiplier(cfg *config.RerankConfig, analyzer *QueryAnalyzer) *QueryQualityMultiplier {
	return &QueryQualityMultiplier{config: cfg, analyzer: analyzer}
}

// Name returns the multiplier name.
func (m *QueryQualityMultiplier) Name() string {
	return "query_quality"
}

// Multiply applies the phrase multiplier to phrase matches.
func (m *QueryQualityMultiplier) Multiply(ctx *ScoringContext, baseScore float64) float64 {
	if baseScore == 0 || matchType(ctx, m.analyzer) != MatchTypePhrase {
		return baseScore
	}
	return baseScore * m.config.PhraseMultiplier
}

// TableIntentMultiplier boosts table chunks when the query asks for tabulated values.
type TableIntentMultiplier struct {
	config *config.RerankConfig
}

// NewTableIntentMultiplier creates a new TableIntentMultiplier.
func NewTableIntentMultiplier(cfg *config.RerankConfig) *TableIntentMultiplier {
	return &TableIntentMultiplier{config: cfg}
}

// Name returns the multiplier name.
func (m *TableIntentMultiplier) Name() string {
	return "table_intent"
}

// Multiply applies the table multiplier.
func (m *TableIntentMultiplier) Multiply(ctx *ScoringContext, baseScore float64) float64 {
	if ctx.Query == nil || !ctx.Query.WantsTable || !ctx.Hit.TableFlag {
		return baseScore
	}
	return baseScore * m.config.TableMultiplier
}

// NegationMultiplier demotes chunks containing a term the query excluded with a leading "-".
type NegationMultiplier struct {
	config *config.RerankConfig
}

// NewNegationMultiplier creates a new NegationMultiplier.
func NewNegationMultiplier(cfg *config.RerankConfig) *NegationMultiplier {
	return &NegationMultiplier{config: cfg}
}

// Name returns the multiplier name.
func (m *NegationMultiplier) Name() string {
	return "negation"
}

// Multiply applies the negation multiplier once if any excluded term is present.
func (m *NegationMultiplier) Multiply(ctx *ScoringContext, baseScore float64) float64 {
	if ctx.Query == nil {
		return baseScore
	}
	for _, t := range ctx.Query.NegatedTerms {
		if strings.Contains(ctx.Content, t) {
			return baseScore * m.config.NegationMultiplier
		}
	}
	return baseScore
}

// DefaultMultipliers returns the multipliers applied by a Ranker.
func DefaultMultipliers(cfg *config.RerankConfig, analyzer *QueryAnalyzer) []Multiplier {
	return []Multiplier{
		NewQueryQualityMultiplier(cfg, analyzer),
		NewTableIntentMultiplier(cfg),
		NewNegationMultiplier(cfg),
	}
}
