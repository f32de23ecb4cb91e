package store

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryStore keeps collections in memory and searches them by brute force. It serves tests,
// offline runs and small corpora; Save and Load persist it to a single file.
type MemoryStore struct {
	dimensions  int
	path        string
	collections map[string][]Record
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty store for vectors of the given dimension. When path is set the
// store is loaded from it and saved back on Close.
func NewMemoryStore(dimensions int, path string) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m := &MemoryStore{
		dimensions:  dimensions,
		path:        path,
		collections: make(map[string][]Record),
	}
	if err := m.Load(path); err != nil {
		return nil, err
	}
	return m, nil
}

// ReplaceDocument removes the document's records and appends the new ones in a single step.
func (m *MemoryStore) ReplaceDocument(ctx context.Context, collection, docKey string, records []Record) error {
	for _, r := range records {
		if len(r.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(r.Vector), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.without(collection, func(r Record) bool { return r.DocumentKey == docKey })
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		kept = append(kept, r)
	}
	m.collections[collection] = kept
	return nil
}

// DeleteDocument removes the records of docKey.
func (m *MemoryStore) DeleteDocument(ctx context.Context, collection, docKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.collections[collection])
	kept := m.without(collection, func(r Record) bool { return r.DocumentKey == docKey })
	if _, ok := m.collections[collection]; ok {
		m.collections[collection] = kept
	}
	return int64(before - len(kept)), nil
}

// Reset empties the collection.
func (m *MemoryStore) Reset(ctx context.Context, collection string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.collections[collection])
	m.collections[collection] = nil
	return int64(n), nil
}

// without returns the records of collection for which drop is false. Callers hold the lock.
func (m *MemoryStore) without(collection string, drop func(Record) bool) []Record {
	src := m.collections[collection]
	out := make([]Record, 0, len(src))
	for _, r := range src {
		if !drop(r) {
			out = append(out, r)
		}
	}
	return out
}

// Search returns the top-k records by cosine similarity.
func (m *MemoryStore) Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]Match, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	records, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if k <= 0 || len(records) == 0 {
		return nil, nil
	}
	matches := make([]Match, 0, len(records))
	for _, r := range records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, Match{Record: r, Score: CosineSimilarity(query, r.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Get returns records by ID in the order requested.
func (m *MemoryStore) Get(ctx context.Context, collection string, ids []string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byID := make(map[string]Record, len(m.collections[collection]))
	for _, r := range m.collections[collection] {
		byID[r.ID] = r
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Count returns the number of records in the collection.
func (m *MemoryStore) Count(ctx context.Context, collection string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.collections[collection])), nil
}

// Close saves the store when it was opened with a path.
func (m *MemoryStore) Close() error {
	return m.Save(m.path)
}

// Save persists the store to path. Directory is created if needed. Format: dimension (4),
// collection count (4), then per collection its name and record count followed by the records:
// id, document key, text, metadata JSON (each length-prefixed) and the vector (dimension*4 bytes).
func (m *MemoryStore) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := writeUint32(w, uint32(m.dimensions), uint32(len(names))); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, name := range names {
		records := m.collections[name]
		if err := writeBytes(w, []byte(name)); err != nil {
			return fmt.Errorf("write collection name: %w", err)
		}
		if err := writeUint32(w, uint32(len(records))); err != nil {
			return fmt.Errorf("write count: %w", err)
		}
		for _, r := range records {
			md, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata of %s: %w", r.ID, err)
			}
			for _, field := range [][]byte{[]byte(r.ID), []byte(r.DocumentKey), []byte(r.Text), md} {
				if err := writeBytes(w, field); err != nil {
					return fmt.Errorf("write record %s: %w", r.ID, err)
				}
			}
			if _, err := w.Write(float32SliceToBytes(r.Vector)); err != nil {
				return fmt.Errorf("write vector: %w", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	return nil
}

// Load reads the store from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the store is unchanged.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, store expects %d", dim, m.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read collection count: %w", err)
	}

	collections := make(map[string][]Record, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		name, err := readBytes(r)
		if err != nil {
			return fmt.Errorf("read collection name: %w", err)
		}
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return fmt.Errorf("read count: %w", err)
		}
		records := make([]Record, 0, count)
		for j := uint32(0); j < count; j++ {
			var fields [4][]byte
			for k := range fields {
				if fields[k], err = readBytes(r); err != nil {
					return fmt.Errorf("read record: %w", err)
				}
			}
			rec := Record{ID: string(fields[0]), DocumentKey: string(fields[1]), Text: string(fields[2])}
			if err := json.Unmarshal(fields[3], &rec.Metadata); err != nil {
				return fmt.Errorf("decode metadata of %s: %w", rec.ID, err)
			}
			if _, err := io.ReadFull(r, buf); err != nil {
				return fmt.Errorf("read vector: %w", err)
			}
			rec.Vector = bytesToFloat32Slice(buf)
			records = append(records, rec)
		}
		collections[string(name)] = records
	}

	m.mu.Lock()
	m.collections = collections
	m.mu.Unlock()
	return nil
}

func writeUint32(w io.Writer, vs ...uint32) error {
	for _, v := range vs {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
