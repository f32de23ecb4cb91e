// Package store provides the vector collections chunks are written to and retrieved from.
package store

import (
	"context"
	"errors"

	"github.com/hyperjump/labia/internal/models"
)

// ErrCollectionNotFound is returned when a collection has never been written.
var ErrCollectionNotFound = errors.New("collection not found")

// Record is one stored chunk: its text, the flat metadata consumed by the retrieval
// application, and its embedding.
type Record struct {
	ID          string
	DocumentKey string
	Text        string
	Metadata    map[string]interface{}
	Vector      []float32
}

// NewRecord builds the stored form of an embedded chunk.
func NewRecord(c *models.Chunk) Record {
	return Record{
		ID:          c.ID,
		DocumentKey: c.DocumentKey,
		Text:        c.Text,
		Metadata:    c.MetadataMap(),
		Vector:      c.Embedding,
	}
}

// Filter restricts a similarity search. Empty fields match everything.
type Filter struct {
	DocumentCode string
	Section      string
}

// Matches reports whether metadata passes the filter.
func (f Filter) Matches(md map[string]interface{}) bool {
	if f.DocumentCode != "" && md["codigo_documento"] != f.DocumentCode {
		return false
	}
	if f.Section != "" && md["seccion"] != f.Section {
		return false
	}
	return true
}

// Match is a similarity search hit. Score is the cosine similarity.
type Match struct {
	Record
	Score float64
}

// Store holds named collections of records.
type Store interface {
	// ReplaceDocument atomically removes every record of docKey in the collection and writes
	// records in its place.
	ReplaceDocument(ctx context.Context, collection, docKey string, records []Record) error
	// DeleteDocument removes the records of docKey and returns how many were removed.
	DeleteDocument(ctx context.Context, collection, docKey string) (int64, error)
	// Reset removes every record of the collection and returns how many were removed.
	Reset(ctx context.Context, collection string) (int64, error)
	// Search returns up to k records most similar to vector, best first.
	Search(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]Match, error)
	// Get returns records by ID, skipping unknown IDs.
	Get(ctx context.Context, collection string, ids []string) ([]Record, error)
	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int64, error)
	Close() error
}
