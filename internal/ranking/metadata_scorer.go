package ranking

import (
	"strings"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
)

// MetadataScorer scores hits whose citation metadata matches codes, standards or sections named
// in the query.
type MetadataScorer struct {
	config *config.RerankConfig
}

// NewMetadataScorer creates a new MetadataScorer with the given config.
func NewMetadataScorer(cfg *config.RerankConfig) *MetadataScorer {
	return &MetadataScorer{config: cfg}
}

// Name returns the scorer name.
func (s *MetadataScorer) Name() string {
	return "metadata"
}

// Score averages the metadata facets the query names. A query naming none scores 0.
func (s *MetadataScorer) Score(ctx *ScoringContext) float64 {
	if ctx.Query == nil || ctx.Hit == nil {
		return 0
	}
	var total float64
	facets := 0

	if len(ctx.Query.DocumentCodes) > 0 {
		facets++
		for _, code := range ctx.Query.DocumentCodes {
			if strings.EqualFold(code, ctx.Hit.DocumentCode) {
				total++
				break
			}
		}
	}

	if len(ctx.Query.Standards) > 0 {
		facets++
		cited := standardsOf(ctx.Hit)
		matched := 0
		for _, std := range ctx.Query.Standards {
			if cited[strings.ToUpper(std)] || strings.Contains(strings.ToUpper(ctx.Hit.Text), strings.ToUpper(std)) {
				matched++
			}
		}
		total += float64(matched) / float64(len(ctx.Query.Standards))
	}

	if len(ctx.Query.Sections) > 0 {
		facets++
		for _, name := range ctx.Query.Sections {
			if models.SectionName(ctx.Hit.Section) == name {
				total++
				break
			}
		}
	}

	if facets == 0 {
		return 0
	}
	return total / float64(facets)
}

// standardsOf returns the standards cited by the hit's document, uppercased.
func standardsOf(hit *models.SearchHit) map[string]bool {
	out := make(map[string]bool)
	for _, s := range strings.Split(hit.ReferencedStandards, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out[strings.ToUpper(s)] = true
		}
	}
	return out
}
