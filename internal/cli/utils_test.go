package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/labia/internal/models"
)

func testResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:      "revenimiento",
		Collection: "labia_embeddings",
		QueryTime:  42,
		Total:      2,
		Hits: []*models.SearchHit{
			{
				ChunkID: "c1", Rank: 1, Score: 0.9, SemanticScore: 0.9,
				Text:         "Medir el revenimiento del concreto fresco.",
				DocumentCode: "LLCCI05", Revision: "02", Section: "PROCEDIMIENTO", Page: 3,
				ReferencedStandards: "ASTM C143", SourceFile: "LLCCI05.pdf",
			},
			{
				ChunkID: "c2", Rank: 2, Score: 0.5, SemanticScore: 0.5,
				Text:      "| Capa | Golpes |\n| --- | --- |\n| 1 | 25 |",
				Section:   "RESULTADOS", Page: 4, TableFlag: true,
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, testResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 2 || len(decoded.Hits) != 2 || decoded.Hits[0].DocumentCode != "LLCCI05" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, testResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Found 2 results in 42ms",
		"Documento: LLCCI05 rev 02 | Sección: PROCEDIMIENTO | Página: 3",
		"Normas: ASTM C143",
		"Archivo: LLCCI05.pdf",
		"revenimiento del concreto",
		"Documento: - | Sección: RESULTADOS | Página: 4 | tabla",
		"| --- | --- |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	WriteRuns(&buf, nil)
	if !strings.Contains(buf.String(), "No runs recorded") {
		t.Errorf("empty: %q", buf.String())
	}

	run := &models.IngestionRun{ID: "run-1", Mode: models.ModeTest, Reset: true, StartedAt: time.Now()}
	run.Counts = models.RunCounts{FilesTotal: 3, FilesProcessed: 2, FilesFailed: 1, ChunksCreated: 14, TablesProcessed: 2}
	buf.Reset()
	WriteRuns(&buf, []*models.IngestionRun{run})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	fields := strings.Fields(lines[1])
	if fields[0] != "run-1" || !strings.Contains(lines[1], "2/3") || !strings.Contains(lines[1], "test-subset") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestWriteOutcomes(t *testing.T) {
	run := &models.IngestionRun{}
	run.Record(models.FileOutcome{File: "roto.pdf", Status: models.FileFailed, Reason: "unreadable PDF"})
	var buf bytes.Buffer
	WriteOutcomes(&buf, run)
	if !strings.Contains(buf.String(), "roto.pdf") || !strings.Contains(buf.String(), "unreadable PDF") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1024:        "1.0 KiB",
		1536:        "1.5 KiB",
		5 * 1 << 20: "5.0 MiB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		s        string
		maxWords int
		want     string
	}{
		{"one two three", 5, "one two three"},
		{"one two three four", 2, "one two..."},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := TruncateWords(tt.s, tt.maxWords); got != tt.want {
			t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
		}
	}
}
