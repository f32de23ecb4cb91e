package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/labia/internal/models"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func testRun(id string, started time.Time) *models.IngestionRun {
	run := &models.IngestionRun{
		ID:         id,
		Mode:       models.ModeTest,
		Reset:      true,
		Collection: "labia_embeddings",
		State:      models.StateSummary,
		ResetCount: 12,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
	run.Counts.FilesTotal = 2
	run.Record(models.FileOutcome{
		File: "LLCCI02.pdf", DocumentKey: "pdf:a", DocumentCode: "LLCCI02", FileHash: "h1",
		Status: models.FileSuccess, Chunks: 5, Tables: 1, Pages: 2,
		Notes: []string{"page 2: recovered by mupdf"}, Duration: 1500 * time.Millisecond,
	})
	run.Record(models.FileOutcome{File: "roto.pdf", Status: models.FileFailed, Reason: "unreadable PDF"})
	return run
}

func TestSQLiteLedger_Runs(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	run := testRun("run-1", started)
	if err := ledger.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	got, err := ledger.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != models.ModeTest || !got.Reset || got.ResetCount != 12 || got.State != models.StateSummary {
		t.Errorf("run = %+v", got)
	}
	if got.Counts != run.Counts {
		t.Errorf("counts = %+v, want %+v", got.Counts, run.Counts)
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("times = %v / %v", got.StartedAt, got.FinishedAt)
	}
	if len(got.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got.Outcomes))
	}
	first := got.Outcomes[0]
	if first.File != "LLCCI02.pdf" || first.DocumentCode != "LLCCI02" || first.Tables != 1 || first.Duration != 1500*time.Millisecond {
		t.Errorf("first outcome = %+v", first)
	}
	if len(first.Notes) != 1 {
		t.Errorf("notes = %v", first.Notes)
	}
	if got.Outcomes[1].Status != models.FileFailed || got.Outcomes[1].Reason != "unreadable PDF" {
		t.Errorf("second outcome = %+v", got.Outcomes[1])
	}

	// Saving again replaces the outcomes.
	run.Outcomes = run.Outcomes[:1]
	if err := ledger.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	got, _ = ledger.GetRun(ctx, "run-1")
	if len(got.Outcomes) != 1 {
		t.Errorf("expected 1 outcome after resave, got %d", len(got.Outcomes))
	}

	if _, err := ledger.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing run: err = %v", err)
	}
}

func TestSQLiteLedger_ListRuns(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := ledger.SaveRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := ledger.ListRuns(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("runs = %v", runs)
	}
	if runs[0].Outcomes != nil {
		t.Error("listed runs should not carry outcomes")
	}
	n, err := ledger.CountRuns(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountRuns = %d, %v", n, err)
	}
}

func TestSQLiteLedger_Documents(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	doc := &models.IndexedDocument{
		DocumentKey: "pdf:a", Collection: "labia_embeddings", File: "LLCCI02.pdf",
		FileHash: "h1", DocumentCode: "LLCCI02", Chunks: 5, Tables: 1, RunID: "run-1",
	}
	if err := ledger.SaveDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
	got, err := ledger.GetDocument(ctx, "labia_embeddings", "pdf:a")
	if err != nil {
		t.Fatal(err)
	}
	if got.FileHash != "h1" || got.Chunks != 5 || got.DocumentCode != "LLCCI02" {
		t.Errorf("document = %+v", got)
	}
	if _, err := ledger.GetDocument(ctx, "otra", "pdf:a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other collection: err = %v", err)
	}

	doc.FileHash = "h2"
	if err := ledger.SaveDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	_ = ledger.SaveDocument(ctx, &models.IndexedDocument{DocumentKey: "pdf:b", Collection: "labia_embeddings", File: "A.pdf", FileHash: "x"})
	n, _ := ledger.CountDocuments(ctx, "labia_embeddings")
	if n != 2 {
		t.Errorf("expected 2 documents, got %d", n)
	}
	list, err := ledger.ListDocuments(ctx, "labia_embeddings", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].File != "A.pdf" || list[1].FileHash != "h2" {
		t.Errorf("list = %+v", list)
	}

	if err := ledger.DeleteDocument(ctx, "labia_embeddings", "pdf:b"); err != nil {
		t.Fatal(err)
	}
	cleared, err := ledger.ClearDocuments(ctx, "labia_embeddings")
	if err != nil || cleared != 1 {
		t.Errorf("ClearDocuments = %d, %v", cleared, err)
	}
	n, _ = ledger.CountDocuments(ctx, "labia_embeddings")
	if n != 0 {
		t.Errorf("expected 0 documents, got %d", n)
	}
}
