package ranking

import (
	"math"
	"reflect"
	"testing"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
)

func TestNewRanker(t *testing.T) {
	ranker := NewRanker(nil)
	if ranker.config == nil {
		t.Fatal("Expected non-nil config")
	}
	if ranker.config.MetadataWeight != 0.25 {
		t.Errorf("Expected default MetadataWeight 0.25, got %v", ranker.config.MetadataWeight)
	}

	ranker = NewRanker(&config.RerankConfig{MetadataWeight: 2})
	if ranker.config.MetadataWeight != 2 {
		t.Errorf("Expected MetadataWeight 2, got %v", ranker.config.MetadataWeight)
	}
}

func TestQueryAnalyzer_Analyze(t *testing.T) {
	q := NewQueryAnalyzer().Analyze(`"Cono de Abrams" presión LLCCI05 ASTM C143 tabla -humedad procedimiento`)

	if !reflect.DeepEqual(q.Phrases, []string{"cono de abrams"}) {
		t.Errorf("Phrases = %v", q.Phrases)
	}
	if !reflect.DeepEqual(q.NegatedTerms, []string{"humedad"}) {
		t.Errorf("NegatedTerms = %v", q.NegatedTerms)
	}
	if !reflect.DeepEqual(q.DocumentCodes, []string{"LLCCI05"}) {
		t.Errorf("DocumentCodes = %v", q.DocumentCodes)
	}
	if !reflect.DeepEqual(q.Standards, []string{"ASTM C143"}) {
		t.Errorf("Standards = %v", q.Standards)
	}
	if !reflect.DeepEqual(q.Sections, []models.SectionName{models.SectionProcedimiento}) {
		t.Errorf("Sections = %v", q.Sections)
	}
	if !q.WantsTable {
		t.Error("Expected table intent")
	}
	found := false
	for _, term := range q.Terms {
		if term == "presion" {
			found = true
		}
		if term == "humedad" {
			t.Error("negated term must not be a match term")
		}
	}
	if !found {
		t.Errorf("Terms = %v, want folded presion", q.Terms)
	}
}

func TestQueryAnalyzer_skipsStopwords(t *testing.T) {
	q := NewQueryAnalyzer().Analyze("la resistencia del concreto")
	if !reflect.DeepEqual(q.Terms, []string{"resistencia", "concreto"}) {
		t.Errorf("Terms = %v", q.Terms)
	}
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Presión":        "presion",
		"CÁLCULOS":       "calculos",
		"Año de emisión": "ano de emision",
		"":               "",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTermsInOrder(t *testing.T) {
	if !TermsInOrder([]string{"cono", "abrams"}, "llenar el cono de abrams") {
		t.Error("expected in order")
	}
	if TermsInOrder([]string{"abrams", "cono"}, "llenar el cono de abrams") {
		t.Error("expected out of order")
	}
	if TermsInOrder(nil, "texto") {
		t.Error("no terms never match")
	}
}

func hit(id, code string, score float64, text string) *models.SearchHit {
	return &models.SearchHit{ChunkID: id, DocumentCode: code, Score: score, Text: text, Section: "PROCEDIMIENTO"}
}

func TestRanker_ReRank_documentCode(t *testing.T) {
	ranker := NewRanker(nil)
	hits := []*models.SearchHit{
		hit("a", "LLCCI02", 0.80, "Medir el revenimiento del concreto."),
		hit("b", "LLCCI05", 0.70, "Medir el revenimiento del concreto."),
	}

	got := ranker.ReRank("revenimiento LLCCI05", hits)

	if got[0].ChunkID != "b" || got[1].ChunkID != "a" {
		t.Fatalf("order = %s, %s", got[0].ChunkID, got[1].ChunkID)
	}
	if got[0].Rank != 1 || got[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", got[0].Rank, got[1].Rank)
	}
	if math.Abs(got[0].Score-0.995) > 1e-9 {
		t.Errorf("score = %v, want 0.995", got[0].Score)
	}
}

func TestRanker_ReRank_tableIntent(t *testing.T) {
	ranker := NewRanker(nil)
	table := hit("t", "LLCCI05", 0.60, "Capa | Golpes\n1 | 25")
	table.TableFlag = true
	hits := []*models.SearchHit{
		hit("n", "LLCCI05", 0.62, "Compactar con 25 golpes."),
		table,
	}

	got := ranker.ReRank("valores de tabla golpes", hits)
	if got[0].ChunkID != "t" {
		t.Errorf("expected the table chunk first, got %s", got[0].ChunkID)
	}

	got = ranker.ReRank("golpes", []*models.SearchHit{
		hit("n", "LLCCI05", 0.62, "Compactar con 25 golpes."),
		func() *models.SearchHit { h := hit("t", "LLCCI05", 0.60, "Capa | Golpes"); h.TableFlag = true; return h }(),
	})
	if got[0].ChunkID != "n" {
		t.Errorf("without table intent the narrative chunk stays first, got %s", got[0].ChunkID)
	}
}

func TestRanker_ReRank_negation(t *testing.T) {
	ranker := NewRanker(nil)
	hits := []*models.SearchHit{
		hit("h", "LLCCI02", 0.9, "Ensayo de contenido de humedad."),
		hit("r", "LLCCI05", 0.5, "Ensayo de revenimiento."),
	}
	got := ranker.ReRank("ensayo -humedad", hits)
	if got[0].ChunkID != "r" {
		t.Errorf("expected the excluded term to demote h, got %s first", got[0].ChunkID)
	}
}

func TestRanker_ReRank_stableTies(t *testing.T) {
	ranker := NewRanker(nil)
	hits := []*models.SearchHit{
		hit("1", "", 0.5, "sin coincidencias"),
		hit("2", "", 0.5, "sin coincidencias"),
		hit("3", "", 0.5, "sin coincidencias"),
	}
	got := ranker.ReRank("granulometria", hits)
	for i, want := range []string{"1", "2", "3"} {
		if got[i].ChunkID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].ChunkID, want)
		}
	}
	if len(ranker.ReRank("x", nil)) != 0 {
		t.Error("expected empty result")
	}
}

func TestRanker_RankWithBreakdown_phrase(t *testing.T) {
	ranker := NewRanker(nil)
	query := ranker.AnalyzeQuery(`"cono de abrams"`)
	b := ranker.RankWithBreakdown(query, hit("c", "LLCCI05", 0.5, "Usar el Cono de Abrams sobre una base rígida."))

	if b.MatchType != MatchTypePhrase {
		t.Errorf("MatchType = %v", b.MatchType)
	}
	if b.ContentScore != 1 {
		t.Errorf("ContentScore = %v", b.ContentScore)
	}
	if m := b.Multipliers["query_quality"]; math.Abs(m-1.2) > 1e-9 {
		t.Errorf("query_quality multiplier = %v", m)
	}
	want := (0.5 + 0.15) * 1.2
	if math.Abs(b.FinalScore-want) > 1e-9 {
		t.Errorf("FinalScore = %v, want %v", b.FinalScore, want)
	}
}

func TestMetadataScorer_Score(t *testing.T) {
	scorer := NewMetadataScorer(&config.RerankConfig{})
	analyzer := NewQueryAnalyzer()

	tests := []struct {
		name  string
		query string
		hit   *models.SearchHit
		want  float64
	}{
		{
			name:  "no metadata in query",
			query: "revenimiento",
			hit:   hit("a", "LLCCI05", 0.5, "revenimiento"),
			want:  0,
		},
		{
			name:  "half the standards cited",
			query: "ASTM C143 ASTM C39",
			hit:   &models.SearchHit{ReferencedStandards: "ASTM C143, NMX-C-156", Text: "cono"},
			want:  0.5,
		},
		{
			name:  "code and section",
			query: "LLCCI05 procedimiento",
			hit:   hit("a", "LLCCI05", 0.5, "texto"),
			want:  1,
		},
		{
			name:  "code matches, section does not",
			query: "LLCCI05 objetivo",
			hit:   hit("a", "LLCCI05", 0.5, "texto"),
			want:  0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewScoringContext(analyzer.Analyze(tt.query), tt.hit)
			if got := scorer.Score(ctx); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchType_String(t *testing.T) {
	if MatchTypeAllWords.String() != "all_words" || MatchType(42).String() != "unknown" {
		t.Error("unexpected match type names")
	}
}
