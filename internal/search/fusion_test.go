package search

import (
	"testing"

	"github.com/hyperjump/labia/internal/keyword"
	"github.com/hyperjump/labia/internal/store"
)

func TestNormalizeKeywordScores(t *testing.T) {
	results := []*keyword.KeywordResult{
		{ID: "a", Score: 2},
		{ID: "b", Score: 4},
		{ID: "c", Score: 1},
	}
	m := NormalizeKeywordScores(results)
	if m["b"] != 1.0 {
		t.Errorf("max score should be 1.0, got %f", m["b"])
	}
	if m["a"] != 0.5 {
		t.Errorf("a should be 0.5, got %f", m["a"])
	}
	if len(m) != 3 {
		t.Errorf("expected 3 entries, got %d", len(m))
	}
}

func TestNormalizeSemanticScores(t *testing.T) {
	matches := []store.Match{
		{Record: store.Record{ID: "c1"}, Score: 0.9},
		{Record: store.Record{ID: "c2"}, Score: -0.2},
	}
	m := NormalizeSemanticScores(matches)
	if m["c1"] != 0.9 || m["c2"] != 0 {
		t.Errorf("unexpected map %v", m)
	}
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"c1": 1.0, "c2": 0.5}
	sem := map[string]float64{"c1": 0.5, "c2": 1.0, "c3": 0.2}
	results := Fuse(kw, sem, 0.3, 0.7)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Error("results should be sorted by score descending")
		}
	}
	if results[0].ID != "c2" {
		t.Errorf("best = %s, want c2", results[0].ID)
	}
	if results[2].ID != "c3" || results[2].KeywordScore != 0 {
		t.Errorf("semantic-only result = %+v", results[2])
	}
}

func TestFuse_StableTies(t *testing.T) {
	sem := map[string]float64{"b": 0.5, "a": 0.5, "c": 0.5}
	results := Fuse(nil, sem, 0, 1)
	if results[0].ID != "a" || results[1].ID != "b" || results[2].ID != "c" {
		t.Errorf("tie order = %s %s %s", results[0].ID, results[1].ID, results[2].ID)
	}
}
