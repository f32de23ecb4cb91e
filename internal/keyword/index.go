// Package keyword provides the BM25 chunk index used for hybrid retrieval.
package keyword

import (
	"context"

	"github.com/hyperjump/labia/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// HeadingBoost multiplies the score contribution from matches in the heading field (document
	// code, section name and referenced standards). Values > 1 make those matches rank higher.
	HeadingBoost float64
	// PhraseBoost multiplies the score when query terms appear close together (phrase match).
	PhraseBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	Fuzziness int
	// DocumentCode and Section restrict hits to one document or section when set.
	DocumentCode string
	Section      string
}

// Index is a keyword index over chunks, keyed by chunk ID.
type Index interface {
	// IndexDocument replaces every chunk of docKey with chunks.
	IndexDocument(ctx context.Context, docKey string, chunks []models.Chunk) error
	DeleteDocument(ctx context.Context, docKey string) error
	// Reset removes every chunk.
	Reset(ctx context.Context) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// DocCount returns the number of indexed chunks.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
