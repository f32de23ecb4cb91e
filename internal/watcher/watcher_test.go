package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/labia/internal/ingest"
	"github.com/hyperjump/labia/internal/models"
)

// recorder collects callback paths.
type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) has(suffix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// eventually polls cond for up to five seconds.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWatcher_IndexesPDFsOnly(t *testing.T) {
	dir := t.TempDir()
	var indexed recorder
	w := NewWatcher(dir, false, indexed.add, nil, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "notas.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "LLCCI02.PDF"), "%PDF-1.4"); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return indexed.has("LLCCI02.PDF") }, "expected LLCCI02.PDF to be indexed")
	if indexed.has("notas.txt") {
		t.Error("notas.txt should not be indexed")
	}
}

func TestWatcher_DebounceCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	var indexed recorder
	w := NewWatcher(dir, false, indexed.add, nil, WithDebounce(300*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "a.pdf")
	for i := 0; i < 5; i++ {
		if err := writeFile(path, strings.Repeat("x", i+1)); err != nil {
			t.Fatal(err)
		}
	}
	eventually(t, func() bool { return indexed.len() > 0 }, "expected a.pdf to be indexed")
	time.Sleep(500 * time.Millisecond)
	if n := indexed.len(); n != 1 {
		t.Errorf("expected one index callback, got %d", n)
	}
}

func TestWatcher_Remove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if err := writeFile(path, "x"); err != nil {
		t.Fatal(err)
	}
	var removed recorder
	w := NewWatcher(dir, false, nil, removed.add, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return removed.has("a.pdf") }, "expected a.pdf to be removed")
}

func TestWatcher_NewDirectoryRecursive(t *testing.T) {
	dir := t.TempDir()
	var indexed recorder
	w := NewWatcher(dir, true, indexed.add, nil, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "2026", "marzo")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return indexed.has("deep.pdf") }, "expected deep.pdf to be indexed")
}

func TestWatcher_SyncExisting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.txt", filepath.Join("sub", "c.pdf")} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := writeFile(p, "x"); err != nil {
			t.Fatal(err)
		}
	}
	var indexed recorder
	NewWatcher(dir, false, indexed.add, nil).SyncExisting()
	if indexed.len() != 1 || !indexed.has("a.pdf") {
		t.Errorf("non-recursive sync: %v", indexed.paths)
	}

	var all recorder
	NewWatcher(dir, true, all.add, nil).SyncExisting()
	if all.len() != 2 || !all.has("c.pdf") {
		t.Errorf("recursive sync: %v", all.paths)
	}
}

func TestWatcher_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data", "raw")
	w := NewWatcher(root, true, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.pdf", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

type fakeIngester struct {
	runs    recorder
	removed recorder
}

func (f *fakeIngester) Run(ctx context.Context, req ingest.Request) (*models.IngestionRun, error) {
	for _, p := range req.Files {
		f.runs.add(p)
	}
	return &models.IngestionRun{Mode: req.Mode}, nil
}

func (f *fakeIngester) Remove(ctx context.Context, path string) (int64, error) {
	f.removed.add(path)
	return 1, nil
}

func TestService(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existente.pdf")
	if err := writeFile(existing, "x"); err != nil {
		t.Fatal(err)
	}
	ing := &fakeIngester{}
	svc := NewService(dir, false, ing, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, true) }()

	eventually(t, func() bool { return ing.runs.has("existente.pdf") }, "existing file not ingested")
	if err := writeFile(filepath.Join(dir, "nuevo.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return ing.runs.has("nuevo.pdf") }, "new file not ingested")
	if err := os.Remove(existing); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return ing.removed.has("existente.pdf") }, "deleted file not removed")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
