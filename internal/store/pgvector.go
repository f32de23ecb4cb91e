package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

//go:embed scripts/schema.sql
var schemaFS embed.FS

// PGVectorStore keeps collections in PostgreSQL with the pgvector extension, using the table
// layout of the LangChain PGVector retriever so the retrieval application reads it directly.
type PGVectorStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PGOption configures a PGVectorStore.
type PGOption func(*PGVectorStore)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) PGOption {
	return func(s *PGVectorStore) { s.logger = l }
}

// NewPGVectorStore connects to dsn, verifies the connection and creates the schema if needed.
func NewPGVectorStore(ctx context.Context, dsn string, opts ...PGOption) (*PGVectorStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &PGVectorStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return s, nil
}

func (s *PGVectorStore) bootstrap(ctx context.Context) error {
	schema, err := schemaFS.ReadFile("scripts/schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// collectionID returns the UUID of the named collection, creating it when create is set.
func collectionID(ctx context.Context, q querier, name string, create bool) (string, error) {
	if create {
		const ins = `
			INSERT INTO langchain_pg_collection (uuid, name, cmetadata)
			VALUES ($1, $2, '{}')
			ON CONFLICT (name) DO NOTHING
		`
		if _, err := q.ExecContext(ctx, ins, uuid.New().String(), name); err != nil {
			return "", fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	var id string
	err := q.QueryRowContext(ctx, `SELECT uuid FROM langchain_pg_collection WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// ReplaceDocument deletes the document's rows and inserts records in one transaction.
func (s *PGVectorStore) ReplaceDocument(ctx context.Context, collection, docKey string, records []Record) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cid, err := collectionID(ctx, tx, collection, true)
	if err != nil {
		return err
	}
	const del = `DELETE FROM langchain_pg_embedding WHERE collection_id = $1 AND cmetadata ->> 'doc_key' = $2`
	if _, err := tx.ExecContext(ctx, del, cid, docKey); err != nil {
		return fmt.Errorf("delete document %s: %w", docKey, err)
	}

	const ins = `
		INSERT INTO langchain_pg_embedding (id, collection_id, embedding, document, cmetadata)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET collection_id = EXCLUDED.collection_id,
		    embedding = EXCLUDED.embedding,
		    document = EXCLUDED.document,
		    cmetadata = EXCLUDED.cmetadata
	`
	stmt, err := tx.PrepareContext(ctx, ins)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, cid, pgvector.NewVector(r.Vector), r.Text, string(md)); err != nil {
			return fmt.Errorf("insert %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Debug("document replaced",
			zap.String("collection", collection),
			zap.String("doc_key", docKey),
			zap.Int("chunks", len(records)))
	}
	return nil
}

// DeleteDocument removes the rows of docKey.
func (s *PGVectorStore) DeleteDocument(ctx context.Context, collection, docKey string) (int64, error) {
	const q = `
		DELETE FROM langchain_pg_embedding
		WHERE collection_id = (SELECT uuid FROM langchain_pg_collection WHERE name = $1)
		  AND cmetadata ->> 'doc_key' = $2
	`
	res, err := s.db.ExecContext(ctx, q, collection, docKey)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", docKey, err)
	}
	return res.RowsAffected()
}

// Reset deletes every row of the collection. The collection row itself is kept.
func (s *PGVectorStore) Reset(ctx context.Context, collection string) (int64, error) {
	const q = `
		DELETE FROM langchain_pg_embedding
		WHERE collection_id = (SELECT uuid FROM langchain_pg_collection WHERE name = $1)
	`
	res, err := s.db.ExecContext(ctx, q, collection)
	if err != nil {
		return 0, fmt.Errorf("reset collection %s: %w", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if s.logger != nil {
		s.logger.Info("collection reset", zap.String("collection", collection), zap.Int64("deleted", n))
	}
	return n, nil
}

// Search orders rows by cosine distance to vector.
func (s *PGVectorStore) Search(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]Match, error) {
	cid, err := collectionID(ctx, s.db, collection, false)
	if err != nil {
		return nil, err
	}
	const q = `
		SELECT id, document, cmetadata, embedding, 1 - (embedding <=> $2) AS score
		FROM langchain_pg_embedding
		WHERE collection_id = $1
		  AND ($3::text = '' OR cmetadata ->> 'codigo_documento' = $3::text)
		  AND ($4::text = '' OR cmetadata ->> 'seccion' = $4::text)
		ORDER BY embedding <=> $2
		LIMIT $5
	`
	rows, err := s.db.QueryContext(ctx, q, cid, pgvector.NewVector(vector), filter.DocumentCode, filter.Section, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var (
			m   Match
			md  []byte
			emb pgvector.Vector
		)
		if err := rows.Scan(&m.ID, &m.Text, &md, &emb, &m.Score); err != nil {
			return nil, err
		}
		if err := decodeMetadata(md, &m.Record); err != nil {
			return nil, err
		}
		m.Vector = emb.Slice()
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get returns rows by ID.
func (s *PGVectorStore) Get(ctx context.Context, collection string, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
		SELECT e.id, e.document, e.cmetadata, e.embedding
		FROM langchain_pg_embedding e
		JOIN langchain_pg_collection c ON c.uuid = e.collection_id
		WHERE c.name = $1 AND e.id = ANY($2)
	`
	rows, err := s.db.QueryContext(ctx, q, collection, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]Record, len(ids))
	for rows.Next() {
		var (
			r   Record
			md  []byte
			emb pgvector.Vector
		)
		if err := rows.Scan(&r.ID, &r.Text, &md, &emb); err != nil {
			return nil, err
		}
		if err := decodeMetadata(md, &r); err != nil {
			return nil, err
		}
		r.Vector = emb.Slice()
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Count returns the number of rows in the collection.
func (s *PGVectorStore) Count(ctx context.Context, collection string) (int64, error) {
	const q = `
		SELECT count(*)
		FROM langchain_pg_embedding e
		JOIN langchain_pg_collection c ON c.uuid = e.collection_id
		WHERE c.name = $1
	`
	var n int64
	if err := s.db.QueryRowContext(ctx, q, collection).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the connection pool.
func (s *PGVectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func decodeMetadata(raw []byte, r *Record) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &r.Metadata); err != nil {
		return fmt.Errorf("decode metadata of %s: %w", r.ID, err)
	}
	if key, ok := r.Metadata["doc_key"].(string); ok {
		r.DocumentKey = key
	}
	return nil
}
