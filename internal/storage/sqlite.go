package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/labia/internal/models"
)

// SQLiteLedger implements Ledger using SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		reset INTEGER NOT NULL DEFAULT 0,
		collection TEXT NOT NULL,
		state TEXT NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		reset_deleted INTEGER NOT NULL DEFAULT 0,
		files_total INTEGER NOT NULL DEFAULT 0,
		files_processed INTEGER NOT NULL DEFAULT 0,
		files_failed INTEGER NOT NULL DEFAULT 0,
		files_skipped INTEGER NOT NULL DEFAULT 0,
		chunks_created INTEGER NOT NULL DEFAULT 0,
		chunks_failed INTEGER NOT NULL DEFAULT 0,
		tables_processed INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_files (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		file TEXT NOT NULL,
		document_key TEXT,
		document_code TEXT,
		file_hash TEXT,
		status TEXT NOT NULL,
		reason TEXT,
		chunks INTEGER NOT NULL DEFAULT 0,
		tables INTEGER NOT NULL DEFAULT 0,
		failed_chunks INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0,
		low_confidence INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		document_key TEXT NOT NULL,
		file TEXT NOT NULL,
		file_hash TEXT NOT NULL,
		document_code TEXT,
		chunks INTEGER NOT NULL DEFAULT 0,
		tables INTEGER NOT NULL DEFAULT 0,
		run_id TEXT,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (collection, document_key)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run and its per-file outcomes in a transaction.
func (s *SQLiteLedger) SaveRun(ctx context.Context, run *models.IngestionRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c := run.Counts
	var finished interface{}
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, mode, reset, collection, state, cancelled, reset_deleted,
			files_total, files_processed, files_failed, files_skipped, chunks_created, chunks_failed,
			tables_processed, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Mode), run.Reset, run.Collection, string(run.State), run.Cancelled, run.ResetCount,
		c.FilesTotal, c.FilesProcessed, c.FilesFailed, c.FilesSkipped, c.ChunksCreated, c.ChunksFailed,
		c.TablesProcessed, run.StartedAt, finished,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_files WHERE run_id = ?`, run.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_files (run_id, position, file, document_key, document_code, file_hash, status,
			reason, chunks, tables, failed_chunks, pages, low_confidence, notes, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, o := range run.Outcomes {
		notesJSON, err := json.Marshal(o.Notes)
		if err != nil {
			return fmt.Errorf("failed to marshal notes: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, o.File, o.DocumentKey, o.DocumentCode, o.FileHash,
			string(o.Status), o.Reason, o.Chunks, o.Tables, o.FailedChunks, o.Pages, o.LowConfidence,
			string(notesJSON), int64(o.Duration)); err != nil {
			return fmt.Errorf("failed to save outcome of %s: %w", o.File, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, mode, reset, collection, state, cancelled, reset_deleted, files_total,
	files_processed, files_failed, files_skipped, chunks_created, chunks_failed, tables_processed,
	started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.IngestionRun, error) {
	var (
		run      models.IngestionRun
		mode     string
		state    string
		finished sql.NullTime
		c        = &run.Counts
	)
	err := row.Scan(&run.ID, &mode, &run.Reset, &run.Collection, &state, &run.Cancelled, &run.ResetCount,
		&c.FilesTotal, &c.FilesProcessed, &c.FilesFailed, &c.FilesSkipped, &c.ChunksCreated, &c.ChunksFailed,
		&c.TablesProcessed, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	run.Mode = models.RunMode(mode)
	run.State = models.RunState(state)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

// GetRun returns a run with its per-file outcomes in recording order.
func (s *SQLiteLedger) GetRun(ctx context.Context, id string) (*models.IngestionRun, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT file, document_key, document_code, file_hash, status, reason, chunks, tables,
			failed_chunks, pages, low_confidence, notes, duration_ns
		 FROM run_files WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o         models.FileOutcome
			status    string
			notesJSON sql.NullString
			key, code sql.NullString
			hash, why sql.NullString
			duration  int64
		)
		if err := rows.Scan(&o.File, &key, &code, &hash, &status, &why, &o.Chunks, &o.Tables,
			&o.FailedChunks, &o.Pages, &o.LowConfidence, &notesJSON, &duration); err != nil {
			return nil, err
		}
		o.DocumentKey, o.DocumentCode, o.FileHash, o.Reason = key.String, code.String, hash.String, why.String
		o.Status = models.FileStatus(status)
		o.Duration = time.Duration(duration)
		if notesJSON.Valid && notesJSON.String != "" {
			_ = json.Unmarshal([]byte(notesJSON.String), &o.Notes)
		}
		run.Outcomes = append(run.Outcomes, o)
		run.Files = append(run.Files, o.File)
	}
	return run, rows.Err()
}

// ListRuns returns runs newest first with offset and limit.
func (s *SQLiteLedger) ListRuns(ctx context.Context, offset, limit int) ([]*models.IngestionRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.IngestionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveDocument inserts or replaces the ledger entry of a document.
func (s *SQLiteLedger) SaveDocument(ctx context.Context, doc *models.IndexedDocument) error {
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (collection, document_key, file, file_hash, document_code,
			chunks, tables, run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.Collection, doc.DocumentKey, doc.File, doc.FileHash, doc.DocumentCode,
		doc.Chunks, doc.Tables, doc.RunID, doc.UpdatedAt,
	)
	return err
}

const documentColumns = `collection, document_key, file, file_hash, document_code, chunks, tables, run_id, updated_at`

func scanDocument(row rowScanner) (*models.IndexedDocument, error) {
	var (
		doc         models.IndexedDocument
		code, runID sql.NullString
	)
	if err := row.Scan(&doc.Collection, &doc.DocumentKey, &doc.File, &doc.FileHash, &code,
		&doc.Chunks, &doc.Tables, &runID, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.DocumentCode, doc.RunID = code.String, runID.String
	return &doc, nil
}

// GetDocument returns the ledger entry of a document.
func (s *SQLiteLedger) GetDocument(ctx context.Context, collection, docKey string) (*models.IndexedDocument, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = ? AND document_key = ?`,
		collection, docKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docKey, ErrNotFound)
	}
	return doc, err
}

// DeleteDocument removes the ledger entry of a document.
func (s *SQLiteLedger) DeleteDocument(ctx context.Context, collection, docKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND document_key = ?`, collection, docKey)
	return err
}

// ClearDocuments removes every document entry of the collection.
func (s *SQLiteLedger) ClearDocuments(ctx context.Context, collection string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListDocuments returns the documents of a collection ordered by file name.
func (s *SQLiteLedger) ListDocuments(ctx context.Context, collection string, offset, limit int) ([]*models.IndexedDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = ? ORDER BY file LIMIT ? OFFSET ?`,
		collection, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.IndexedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of documents of a collection.
func (s *SQLiteLedger) CountDocuments(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&count)
	return count, err
}

// CountRuns returns the number of recorded runs.
func (s *SQLiteLedger) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
