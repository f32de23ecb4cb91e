package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/labia/internal/models"
)

func chunk(id, section, code, text string) models.Chunk {
	return models.Chunk{
		ID:      id,
		Text:    text,
		Section: models.SectionName(section),
		Metadata: &models.DocumentMetadata{
			DocumentCode:        code,
			ReferencedStandards: []string{"ASTM C109"},
		},
	}
}

func testIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	ctx := context.Background()
	if err := idx.IndexDocument(ctx, "doc1", []models.Chunk{
		chunk("a", "PROCEDIMIENTO", "LLCCI05", "Se aplica la carga de compresión a los cubos de mortero."),
		chunk("b", "OBJETIVO", "LLCCI05", "Determinar la resistencia del mortero de cemento hidráulico."),
	}); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if err := idx.IndexDocument(ctx, "doc2", []models.Chunk{
		chunk("c", "PROCEDIMIENTO", "LLCCI02", "Medir el revenimiento del concreto fresco con el cono."),
	}); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := testIndex(t)
	results, err := idx.Search(context.Background(), "revenimiento", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c" {
		t.Errorf("results = %+v, want chunk c", results)
	}
}

func TestBleveIndex_AccentInsensitive(t *testing.T) {
	idx := testIndex(t)
	for _, q := range []string{"compresion", "compresión", "COMPRESIÓN"} {
		results, err := idx.Search(context.Background(), q, 10, nil)
		if err != nil {
			t.Fatalf("Search %q: %v", q, err)
		}
		if len(results) == 0 || results[0].ID != "a" {
			t.Errorf("Search %q = %+v, want chunk a first", q, results)
		}
	}
}

func TestBleveIndex_Filters(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, "mortero", 10, &SearchOptions{Section: "OBJETIVO"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "b" {
		t.Errorf("section filter = %+v, want b", results)
	}

	results, err = idx.Search(ctx, "procedimiento", 10, &SearchOptions{DocumentCode: "LLCCI02", HeadingBoost: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "c" {
		t.Errorf("code filter = %+v, want c", results)
	}
}

func TestBleveIndex_HeadingBoost(t *testing.T) {
	idx := testIndex(t)
	results, err := idx.Search(context.Background(), "objetivo", 10, &SearchOptions{HeadingBoost: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "b" {
		t.Errorf("results = %+v, want b first (section name is in the heading)", results)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := testIndex(t)
	results, err := idx.Search(context.Background(), "reveniminto", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "c" {
		t.Errorf("fuzzy results = %+v, want c", results)
	}
}

func TestBleveIndex_ReplaceAndDelete(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	if err := idx.IndexDocument(ctx, "doc1", []models.Chunk{
		chunk("a2", "ALCANCE", "LLCCI05", "Aplica a morteros de laboratorio."),
	}); err != nil {
		t.Fatal(err)
	}
	n, _ := idx.DocCount()
	if n != 2 {
		t.Errorf("DocCount after replace = %d, want 2", n)
	}
	results, _ := idx.Search(ctx, "compresion", 10, nil)
	if len(results) != 0 {
		t.Errorf("replaced chunk still searchable: %+v", results)
	}

	if err := idx.DeleteDocument(ctx, "doc2"); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("DocCount after delete = %d, want 1", n)
	}
}

func TestBleveIndex_Reset(t *testing.T) {
	idx := testIndex(t)
	if err := idx.Reset(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 0 {
		t.Errorf("DocCount after reset = %d", n)
	}
}

func TestBleveIndex_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.IndexDocument(ctx, "doc1", []models.Chunk{chunk("a", "OBJETIVO", "LLCCI05", "densidad del cemento")}); err != nil {
		t.Fatal(err)
	}
	_ = idx.Close()

	idx, err = NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, err := idx.Search(ctx, "densidad", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result after reopen, got %d", len(results))
	}
}
