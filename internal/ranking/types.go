// Package ranking re-orders retrieval hits using what the query names explicitly: document codes,
// referenced standards, section names, quoted phrases and a request for tabular values.
package ranking

import (
	"github.com/hyperjump/labia/internal/models"
)

// MatchType represents how well the query text matched a chunk.
type MatchType int

const (
	// MatchTypeNone indicates no query term was found.
	MatchTypeNone MatchType = iota
	// MatchTypePartial indicates some query terms were found.
	MatchTypePartial
	// MatchTypeAllWords indicates every query term was found but not in order.
	MatchTypeAllWords
	// MatchTypePhrase indicates a quoted phrase, or every term in order, was found.
	MatchTypePhrase
)

// String returns a string representation of the match type.
func (m MatchType) String() string {
	switch m {
	case MatchTypeNone:
		return "none"
	case MatchTypePartial:
		return "partial"
	case MatchTypeAllWords:
		return "all_words"
	case MatchTypePhrase:
		return "phrase"
	default:
		return "unknown"
	}
}

// AnalyzedQuery holds the parsed form of a retrieval query. Terms and phrases are lowercased
// and stripped of accents.
type AnalyzedQuery struct {
	Original      string
	Terms         []string
	Phrases       []string
	NegatedTerms  []string
	DocumentCodes []string
	Standards     []string
	Sections      []models.SectionName
	WantsTable    bool
}

// ScoringContext is the query and the hit being scored.
type ScoringContext struct {
	Query *AnalyzedQuery
	Hit   *models.SearchHit
	// Content is the folded hit text.
	Content string
}

// NewScoringContext creates a ScoringContext for hit.
func NewScoringContext(query *AnalyzedQuery, hit *models.SearchHit) *ScoringContext {
	return &ScoringContext{Query: query, Hit: hit, Content: Fold(hit.Text)}
}

// Scorer is the interface for scoring components. Scores are in [0,1].
type Scorer interface {
	Score(ctx *ScoringContext) float64
	Name() string
}

// Multiplier is the interface for score multipliers.
type Multiplier interface {
	Multiply(ctx *ScoringContext, baseScore float64) float64
	Name() string
}

// ScoreBreakdown provides detailed scoring information for debugging.
type ScoreBreakdown struct {
	BaseScore     float64
	ContentScore  float64
	MetadataScore float64
	FinalScore    float64
	Multipliers   map[string]float64
	MatchType     MatchType
}
