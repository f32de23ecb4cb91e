package ranking

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hyperjump/labia/internal/metadata"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/pkg/utils"
)

var phraseRegex = regexp.MustCompile(`"([^"]+)"`)

// sectionTerms maps folded query words to the section they name.
var sectionTerms = map[string]models.SectionName{
	"objetivo":      models.SectionObjetivo,
	"alcance":       models.SectionAlcance,
	"requisitos":    models.SectionRequisitos,
	"materiales":    models.SectionMateriales,
	"equipo":        models.SectionEquipos,
	"equipos":       models.SectionEquipos,
	"procedimiento": models.SectionProcedimiento,
	"calculo":       models.SectionCalculos,
	"calculos":      models.SectionCalculos,
	"resultados":    models.SectionResultados,
	"precauciones":  models.SectionPrecauciones,
	"referencias":   models.SectionReferencias,
}

var tableTerms = map[string]bool{
	"tabla":       true,
	"tablas":      true,
	"valor":       true,
	"valores":     true,
	"tolerancia":  true,
	"tolerancias": true,
}

// stopwords are skipped when matching terms against chunk text.
var stopwords = map[string]bool{
	"a": true, "al": true, "con": true, "de": true, "del": true, "el": true, "en": true,
	"la": true, "las": true, "lo": true, "los": true, "para": true, "por": true, "que": true,
	"se": true, "un": true, "una": true, "y": true, "o": true, "como": true, "cual": true,
}

// QueryAnalyzer extracts terms, phrases and laboratory metadata from queries.
type QueryAnalyzer struct {
	extractor *metadata.Extractor
}

// NewQueryAnalyzer creates a new QueryAnalyzer.
func NewQueryAnalyzer() *QueryAnalyzer {
	return &QueryAnalyzer{extractor: metadata.NewExtractor()}
}

// Analyze parses a query string and returns an AnalyzedQuery.
func (qa *QueryAnalyzer) Analyze(query string) *AnalyzedQuery {
	result := &AnalyzedQuery{Original: query}

	for _, m := range phraseRegex.FindAllStringSubmatch(query, -1) {
		if phrase := strings.TrimSpace(Fold(m[1])); phrase != "" {
			result.Phrases = append(result.Phrases, phrase)
		}
	}
	remaining := phraseRegex.ReplaceAllString(query, " ")

	seen := make(map[string]bool)
	for _, word := range strings.Fields(remaining) {
		if strings.HasPrefix(word, "-") && len(word) > 1 {
			if t := normalizeToken(word[1:]); t != "" {
				result.NegatedTerms = append(result.NegatedTerms, t)
			}
			continue
		}
		t := normalizeToken(word)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if name, ok := sectionTerms[t]; ok {
			result.Sections = append(result.Sections, name)
		}
		if tableTerms[t] {
			result.WantsTable = true
		}
		if !stopwords[t] {
			result.Terms = append(result.Terms, t)
		}
	}

	md := qa.extractor.Extract(query, "")
	if md.DocumentCode != "" {
		result.DocumentCodes = append(result.DocumentCodes, md.DocumentCode)
	}
	result.Standards = md.ReferencedStandards
	return result
}

// TokenizeForMatching returns the terms plus the words of every phrase, without duplicates.
func (qa *QueryAnalyzer) TokenizeForMatching(analyzed *AnalyzedQuery) []string {
	seen := make(map[string]bool)
	tokens := make([]string, 0, len(analyzed.Terms)+len(analyzed.Phrases)*3)
	for _, term := range analyzed.Terms {
		if !seen[term] {
			tokens = append(tokens, term)
			seen[term] = true
		}
	}
	for _, phrase := range analyzed.Phrases {
		for _, word := range strings.Fields(phrase) {
			t := normalizeToken(word)
			if t != "" && !stopwords[t] && !seen[t] {
				tokens = append(tokens, t)
				seen[t] = true
			}
		}
	}
	return tokens
}

// normalizeToken folds a token and trims punctuation from its edges.
func normalizeToken(token string) string {
	return strings.TrimFunc(Fold(token), func(r rune) bool {
		return unicode.IsPunct(r) && r != '-' && r != '_'
	})
}

// Fold lowercases s and removes diacritics so "Presión" matches "presion".
func Fold(s string) string {
	return strings.ToLower(utils.FoldAccents(s))
}

// AllTermsMatch checks if all terms are found in the folded text.
func AllTermsMatch(terms []string, text string) bool {
	if len(terms) == 0 {
		return false
	}
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// CountMatchingTerms counts how many terms are found in the folded text.
func CountMatchingTerms(terms []string, text string) int {
	count := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			count++
		}
	}
	return count
}

// TermsInOrder checks if terms appear in order in the folded text.
func TermsInOrder(terms []string, text string) bool {
	if len(terms) == 0 {
		return false
	}
	lastPos := -1
	for _, term := range terms {
		pos := strings.Index(text[lastPos+1:], term)
		if pos == -1 {
			return false
		}
		lastPos = lastPos + 1 + pos
	}
	return true
}
