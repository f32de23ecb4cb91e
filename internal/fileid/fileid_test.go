package fileid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestDocumentKey(t *testing.T) {
	id1 := DocumentKey("/data/raw", "/data/raw/LLCCI05.pdf")
	id2 := DocumentKey("/data/raw", "/data/raw/LLCCI05.pdf")
	if id1 != id2 {
		t.Errorf("same path should give same key: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("key should have prefix %q: got %q", prefix, id1)
	}
}

func TestDocumentKey_relativeToRoot(t *testing.T) {
	if DocumentKey("/a", "/a/LLCCI05.pdf") != DocumentKey("/b", "/b/./llcci05.PDF") {
		t.Error("top-level files should key on the case-folded file name")
	}
	if DocumentKey("/a", "/a/LLCCI05.pdf") == DocumentKey("/a", "/a/LLCCI06.pdf") {
		t.Error("different files should give different keys")
	}
	if DocumentKey("/raw", "/raw/2023/instructivo.pdf") == DocumentKey("/raw", "/raw/2024/instructivo.pdf") {
		t.Error("same-named files in different subdirectories should give different keys")
	}
	if DocumentKey("", "/x/LLCCI05.pdf") != DocumentKey("/a", "/a/LLCCI05.pdf") {
		t.Error("without a root the key should fall back to the file name")
	}
}

func TestRelativeName(t *testing.T) {
	tests := []struct {
		root, path, want string
	}{
		{"/raw", "/raw/LLCCI05.pdf", "LLCCI05.pdf"},
		{"/raw", "/raw/2024/sub/LLCCI05.pdf", "2024/sub/LLCCI05.pdf"},
		{"/raw/", "/raw/./2024/A.pdf", "2024/A.pdf"},
		{"/raw", "/elsewhere/A.pdf", "A.pdf"},
		{"", "/raw/2024/A.pdf", "A.pdf"},
		{"raw", "/abs/A.pdf", "A.pdf"},
	}
	for _, tt := range tests {
		if got := RelativeName(tt.root, tt.path); got != tt.want {
			t.Errorf("RelativeName(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestChunkID(t *testing.T) {
	a := ChunkID("labia_embeddings", "pdf:x", 0)
	if a != ChunkID("labia_embeddings", "pdf:x", 0) {
		t.Error("chunk IDs should be deterministic")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("chunk ID should be a UUID: %v", err)
	}
	others := []string{
		ChunkID("labia_embeddings", "pdf:x", 1),
		ChunkID("labia_embeddings", "pdf:y", 0),
		ChunkID("other", "pdf:x", 0),
	}
	for _, o := range others {
		if o == a {
			t.Errorf("unexpected collision %q", o)
		}
	}
}

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(p, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}
	h, err := FileHash(p)
	if err != nil {
		t.Fatal(err)
	}
	if h != ContentHash("%PDF-1.4") {
		t.Errorf("file hash should equal content hash of the same bytes")
	}
	if _, err := FileHash(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
