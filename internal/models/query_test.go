package models

import (
	"errors"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr bool
		wantK   int
	}{
		{"empty query", &SearchQuery{Query: "  "}, true, 0},
		{"valid query gets default k", &SearchQuery{Query: "revenimiento"}, false, 5},
		{"caps top k", &SearchQuery{Query: "x", TopK: 200}, false, 50},
		{"keeps explicit k", &SearchQuery{Query: "x", TopK: 7}, false, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(5, 50)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Errorf("expected ErrInvalidQuery, got %v", err)
				}
				return
			}
			if tt.query.TopK != tt.wantK {
				t.Errorf("TopK = %d, want %d", tt.query.TopK, tt.wantK)
			}
			if !tt.query.SemanticEnabled {
				t.Error("expected semantic search enabled by default")
			}
		})
	}
}

func TestSearchQuery_ValidateNormalizesFilters(t *testing.T) {
	q := &SearchQuery{Query: "x", DocumentCode: " llcci05 ", Section: "procedimiento"}
	if err := q.Validate(5, 50); err != nil {
		t.Fatal(err)
	}
	if q.DocumentCode != "LLCCI05" {
		t.Errorf("DocumentCode = %q", q.DocumentCode)
	}
	if q.Section != SectionProcedimiento {
		t.Errorf("Section = %q", q.Section)
	}
}

func TestTableData_Markdown(t *testing.T) {
	td := &TableData{Rows: [][]string{{"Edad", "Resistencia"}, {"7 días", "21 MPa"}, {"28 días", "28 MPa"}}}
	want := "| Edad | Resistencia |\n| --- | --- |\n| 7 días | 21 MPa |\n| 28 días | 28 MPa |"
	if got := td.Markdown(); got != want {
		t.Errorf("Markdown() =\n%s\nwant\n%s", got, want)
	}
	var nilTable *TableData
	if nilTable.Markdown() != "" {
		t.Error("nil table should render empty")
	}
}

func TestIngestionRun_Record(t *testing.T) {
	run := &IngestionRun{}
	run.Record(FileOutcome{File: "a.pdf", Status: FileSuccess, Chunks: 4, Tables: 1})
	run.Record(FileOutcome{File: "b.pdf", Status: FileFailed, Reason: "unreadable"})
	run.Record(FileOutcome{File: "c.pdf", Status: FilePartial, Chunks: 2, FailedChunks: 1})
	run.Record(FileOutcome{File: "d.pdf", Status: FileSkipped})

	c := run.Counts
	if c.FilesProcessed != 2 || c.FilesFailed != 1 || c.FilesSkipped != 1 {
		t.Errorf("unexpected file counts: %+v", c)
	}
	if c.ChunksCreated != 6 || c.ChunksFailed != 1 || c.TablesProcessed != 1 {
		t.Errorf("unexpected chunk counts: %+v", c)
	}
	failed := run.FailedFiles()
	if len(failed) != 1 || failed[0].File != "b.pdf" || failed[0].Reason != "unreadable" {
		t.Errorf("FailedFiles() = %+v", failed)
	}
}

func TestChunk_MetadataMap(t *testing.T) {
	c := &Chunk{
		DocumentKey: "doc:1",
		Index:       3,
		Section:     SectionTabla,
		TableFlag:   true,
		TableIndex:  2,
		Page:        4,
		Metadata: &DocumentMetadata{
			DocumentCode:        "LLCCI02",
			ReferencedStandards: []string{"ASTM C109", "ASTM C39"},
			SourceFile:          "LLCCI02.pdf",
		},
	}
	m := c.MetadataMap()
	if m["tipo_contenido"] != ContentTypeTable || m["tabla_idx"] != 2 {
		t.Errorf("table keys missing: %v", m)
	}
	if m["codigo_documento"] != "LLCCI02" || m["normas"] != "ASTM C109, ASTM C39" {
		t.Errorf("document keys missing: %v", m)
	}
	if _, ok := m["fecha"]; ok {
		t.Error("absent date should not be set")
	}
}
