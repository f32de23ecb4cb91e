package search

import (
	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
)

// ProcessQuery validates the query and applies the configured top-K default and cap.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) error {
	return query.Validate(cfg.DefaultTopK, cfg.MaxTopK)
}

// weights returns the fusion weights for the enabled retrieval modes. A single enabled mode gets
// the whole weight.
func weights(query *models.SearchQuery, cfg *config.SearchConfig, keywordAvailable bool) (kw, sem float64) {
	useKeyword := query.KeywordEnabled && keywordAvailable
	switch {
	case useKeyword && query.SemanticEnabled:
		kw, sem = cfg.KeywordWeight, cfg.SemanticWeight
		if kw+sem <= 0 {
			kw, sem = 0.5, 0.5
		}
		return kw, sem
	case useKeyword:
		return 1, 0
	default:
		return 0, 1
	}
}
