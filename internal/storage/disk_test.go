package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "ledger.db")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "keyword")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	got, total, err := DiskUsage([]Usage{
		{Component: "ledger", Path: f1},
		{Component: "keyword", Path: sub},
		{Component: "cache", Path: filepath.Join(dir, "nonexistent")},
		{Component: "store", Path: ""},
	})
	if err != nil {
		t.Fatal(err)
	}
	if total != 8 {
		t.Errorf("total = %d bytes, want 8", total)
	}
	want := []int64{5, 3, 0, 0}
	for i, u := range got {
		if u.Bytes != want[i] {
			t.Errorf("%s: got %d bytes, want %d", u.Component, u.Bytes, want[i])
		}
	}
}
