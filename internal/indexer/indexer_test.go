package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/embedding"
	"github.com/hyperjump/labia/internal/fileid"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/pdftest"
	"github.com/hyperjump/labia/internal/store"
)

const wantTable = "| Ensayo | Resultado | Unidad |\n" +
	"| --- | --- | --- |\n" +
	"| Resistencia | 25 | MPa |\n" +
	"| Revenimiento | 10 | cm |"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Extract.OCR.Disabled = true
	cfg.Embedding.Provider = "mock"
	config.ApplyDefaults(cfg)
	return cfg
}

func testIndexer(t *testing.T) (*Indexer, *embedding.MockEmbedder, *store.MemoryStore) {
	t.Helper()
	st, err := store.NewMemoryStore(8, "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	emb := embedding.NewMockEmbedder(8)
	w := NewWriter(st, emb, WriterConfig{Collection: testCollection, BatchSize: 4})
	return NewIndexer(testConfig(), w), emb, st
}

// writeInstructivo writes a two-page lab instruction with a code, a pressure in psi and a table.
func writeInstructivo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := pdftest.WriteFile(path,
		pdftest.NewPage().Line(
			"INSTRUCTIVO DE LABORATORIO",
			"Codigo: LLCCI02 Rev. 01",
			"1. OBJETIVO",
			"Verificar el equipo de ensayo a una presion de 25 psi antes de cada serie.",
		),
		pdftest.NewPage().
			Line("5. PROCEDIMIENTO", "Registrar los resultados del ensayo en la tabla siguiente.").
			Table(120,
				[]string{"Ensayo", "Resultado", "Unidad"},
				[]string{"Resistencia", "25", "MPa"},
				[]string{"Revenimiento", "10", "cm"},
			).
			Line("", "Las probetas se descartan al finalizar el ensayo."),
	)
	if err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func storedChunks(t *testing.T, st *store.MemoryStore, path string, n int) []store.Record {
	t.Helper()
	key := fileid.DocumentKey("", path)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fileid.ChunkID(testCollection, key, i)
	}
	recs, err := st.Get(context.Background(), testCollection, ids)
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestIndexFile(t *testing.T) {
	ctx := context.Background()
	idx, _, st := testIndexer(t)
	path := writeInstructivo(t, t.TempDir(), "LLCCI02.pdf")

	out := idx.IndexFile(ctx, path)
	if out.Status != models.FileSuccess {
		t.Fatalf("status = %s, reason %q", out.Status, out.Reason)
	}
	if out.DocumentCode != "LLCCI02" || out.Pages != 2 || out.Tables != 1 || out.LowConfidence {
		t.Errorf("outcome = %+v", out)
	}
	if out.DocumentKey != fileid.DocumentKey(idx.root, path) || out.File != "LLCCI02.pdf" {
		t.Errorf("outcome identity = %q %q", out.File, out.DocumentKey)
	}

	count, err := st.Count(ctx, testCollection)
	if err != nil {
		t.Fatal(err)
	}
	if int(count) != out.Chunks {
		t.Fatalf("store holds %d chunks, outcome reports %d", count, out.Chunks)
	}

	recs := storedChunks(t, st, path, out.Chunks)
	if len(recs) != out.Chunks {
		t.Fatalf("found %d of %d chunks by ID", len(recs), out.Chunks)
	}
	var tables, annotated int
	for _, r := range recs {
		if r.Metadata["codigo_documento"] != "LLCCI02" {
			t.Errorf("chunk %s code = %v", r.ID, r.Metadata["codigo_documento"])
		}
		if r.Metadata["tipo_contenido"] == models.ContentTypeTable {
			tables++
			if r.Text != wantTable {
				t.Errorf("table chunk =\n%s\nwant\n%s", r.Text, wantTable)
			}
			if r.Metadata["seccion"] != string(models.SectionProcedimiento) {
				t.Errorf("table section = %v", r.Metadata["seccion"])
			}
			continue
		}
		if strings.Contains(r.Text, "Revenimiento") {
			t.Errorf("table row leaked into narrative chunk %q", r.Text)
		}
		if strings.Contains(r.Text, "25 psi (≈ 172.37 kPa)") {
			annotated++
			if r.Metadata["seccion"] != string(models.SectionObjetivo) {
				t.Errorf("pressure chunk section = %v", r.Metadata["seccion"])
			}
		}
	}
	if tables != 1 {
		t.Errorf("got %d table chunks, want 1", tables)
	}
	if annotated != 1 {
		t.Errorf("got %d chunks with the kPa annotation, want 1", annotated)
	}
}

func TestIndexFile_ReindexReplaces(t *testing.T) {
	ctx := context.Background()
	idx, _, st := testIndexer(t)
	path := writeInstructivo(t, t.TempDir(), "LLCCI02.pdf")

	first := idx.IndexFile(ctx, path)
	second := idx.IndexFile(ctx, path)
	if first.Status != models.FileSuccess || second.Status != models.FileSuccess {
		t.Fatalf("statuses = %s, %s", first.Status, second.Status)
	}
	count, err := st.Count(ctx, testCollection)
	if err != nil {
		t.Fatal(err)
	}
	if int(count) != first.Chunks {
		t.Errorf("after re-indexing the store holds %d chunks, want %d", count, first.Chunks)
	}
}

func TestIndexFile_Corrupt(t *testing.T) {
	ctx := context.Background()
	idx, _, st := testIndexer(t)
	path := filepath.Join(t.TempDir(), "roto.pdf")
	if err := os.WriteFile(path, pdftest.Corrupt(), 0o600); err != nil {
		t.Fatal(err)
	}

	out := idx.IndexFile(ctx, path)
	if out.Status != models.FileFailed || out.Reason == "" {
		t.Fatalf("outcome = %+v", out)
	}
	if n, _ := st.Count(ctx, testCollection); n != 0 {
		t.Errorf("store holds %d chunks after a failed file", n)
	}
}

func TestIndexFile_Cancelled(t *testing.T) {
	idx, _, st := testIndexer(t)
	path := writeInstructivo(t, t.TempDir(), "LLCCI02.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := idx.IndexFile(ctx, path)
	if out.Status != models.FileCancelled {
		t.Fatalf("status = %s, reason %q", out.Status, out.Reason)
	}
	if n, _ := st.Count(context.Background(), testCollection); n != 0 {
		t.Errorf("store holds %d chunks after cancellation", n)
	}
}

func TestIndexFile_PartialWhenChunkFails(t *testing.T) {
	ctx := context.Background()
	idx, emb, _ := testIndexer(t)
	emb.FailWhen = func(text string) bool { return strings.Contains(text, "OBJETIVO") }
	path := writeInstructivo(t, t.TempDir(), "LLCCI02.pdf")

	out := idx.IndexFile(ctx, path)
	if out.Status != models.FilePartial {
		t.Fatalf("status = %s, reason %q", out.Status, out.Reason)
	}
	if out.FailedChunks != 1 || out.Chunks == 0 {
		t.Errorf("outcome = %+v", out)
	}
	if out.Failed() {
		t.Error("a partial file must not count as failed")
	}
}

func TestPrepare_Sections(t *testing.T) {
	idx, _, _ := testIndexer(t)
	path := writeInstructivo(t, t.TempDir(), "LLCCI02.pdf")

	p, err := idx.Prepare(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range p.Sections {
		names = append(names, string(s.Name))
	}
	want := "INICIO,OBJETIVO,PROCEDIMIENTO"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("sections = %s, want %s", got, want)
	}
	if p.Tables() != 1 {
		t.Errorf("tables = %d", p.Tables())
	}
	for i, c := range p.Chunks {
		if c.Index != i || c.Metadata != p.Metadata || c.DocumentKey != p.DocumentKey {
			t.Errorf("chunk %d = %+v", i, c)
		}
	}
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()
	idx, _, st := testIndexer(t)
	dir := t.TempDir()
	a := writeInstructivo(t, dir, "LLCCI02.pdf")
	b := writeInstructivo(t, dir, "LLCCI05.pdf")
	outA := idx.IndexFile(ctx, a)
	outB := idx.IndexFile(ctx, b)

	n, err := idx.DeleteFile(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if int(n) != outA.Chunks {
		t.Errorf("deleted %d chunks, want %d", n, outA.Chunks)
	}
	count, _ := st.Count(ctx, testCollection)
	if int(count) != outB.Chunks {
		t.Errorf("store holds %d chunks, want %d", count, outB.Chunks)
	}
}

func TestIndexFile_SameNameInSubdirectories(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	cfg := testConfig()
	cfg.Source.Directory = root
	st, err := store.NewMemoryStore(8, "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	idx := NewIndexer(cfg, NewWriter(st, embedding.NewMockEmbedder(8), WriterConfig{Collection: testCollection}))

	for _, sub := range []string{"2023", "2024"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	older := writeInstructivo(t, filepath.Join(root, "2023"), "instructivo.pdf")
	newer := writeInstructivo(t, filepath.Join(root, "2024"), "instructivo.pdf")
	outOld := idx.IndexFile(ctx, older)
	outNew := idx.IndexFile(ctx, newer)
	if outOld.Status != models.FileSuccess || outNew.Status != models.FileSuccess {
		t.Fatalf("statuses = %s, %s", outOld.Status, outNew.Status)
	}
	if outOld.DocumentKey == outNew.DocumentKey {
		t.Fatalf("same-named files share key %q", outOld.DocumentKey)
	}
	if outOld.File != "2023/instructivo.pdf" || outNew.File != "2024/instructivo.pdf" {
		t.Errorf("files = %q, %q", outOld.File, outNew.File)
	}
	count, err := st.Count(ctx, testCollection)
	if err != nil {
		t.Fatal(err)
	}
	if int(count) != outOld.Chunks+outNew.Chunks {
		t.Errorf("store holds %d chunks, want %d", count, outOld.Chunks+outNew.Chunks)
	}
}
