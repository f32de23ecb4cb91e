package embedding

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestEmbeddingCache_GetRefreshesRecency(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a")
	c.Set("c", []float32{3}) // evicts b
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
}

func TestEmbeddingCache_Concurrent(t *testing.T) {
	c := NewEmbeddingCache(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i+j)%20))
				c.Set(key, []float32{float32(j)})
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Errorf("Len = %d, exceeds capacity", c.Len())
	}
}

func TestCacheKey(t *testing.T) {
	k := CacheKey("models/embedding-001", taskDocument, "texto")
	if len(k) != 64 {
		t.Errorf("key length = %d", len(k))
	}
	if k != CacheKey("models/embedding-001", taskDocument, "texto") {
		t.Error("key not deterministic")
	}
	if k == CacheKey("models/embedding-001", taskQuery, "texto") {
		t.Error("task must change the key")
	}
	if k == CacheKey("text-embedding-3-small", taskDocument, "texto") {
		t.Error("model must change the key")
	}
}

func TestDiskCache_Persists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := NewDiskCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss")
	}
	c.Set("k", []float32{0.25, -1.5, 3})
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = NewDiskCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after reopen")
	}
	if len(v) != 3 || v[0] != 0.25 || v[1] != -1.5 || v[2] != 3 {
		t.Errorf("Get = %v", v)
	}
}
