package models

import (
	"errors"
	"strings"
)

// ErrInvalidQuery is returned when a retrieval query cannot be served.
var ErrInvalidQuery = errors.New("invalid query")

// SearchQuery is a retrieval request against the collection.
type SearchQuery struct {
	Query           string      `json:"query"`
	TopK            int         `json:"top_k,omitempty"`
	DocumentCode    string      `json:"document_code,omitempty"`
	Section         SectionName `json:"section,omitempty"`
	KeywordEnabled  bool        `json:"keyword_enabled,omitempty"`
	SemanticEnabled bool        `json:"semantic_enabled,omitempty"`
	MinScore        float64     `json:"min_score,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
// defaultK applies when TopK is unset and maxK caps it.
func (q *SearchQuery) Validate(defaultK, maxK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return errors.Join(ErrInvalidQuery, errors.New("query cannot be empty"))
	}
	if q.TopK <= 0 {
		q.TopK = defaultK
	}
	if maxK > 0 && q.TopK > maxK {
		q.TopK = maxK
	}
	if q.TopK <= 0 {
		q.TopK = 5
	}
	q.DocumentCode = strings.ToUpper(strings.TrimSpace(q.DocumentCode))
	q.Section = SectionName(strings.ToUpper(strings.TrimSpace(string(q.Section))))
	if !q.KeywordEnabled && !q.SemanticEnabled {
		q.SemanticEnabled = true
	}
	return nil
}
