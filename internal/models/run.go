package models

import "time"

// RunMode distinguishes a full run from a test-subset run.
type RunMode string

const (
	ModeFull  RunMode = "full"
	ModeTest  RunMode = "test-subset"
	ModeWatch RunMode = "watch"
)

// RunState is the orchestrator state recorded on the run.
type RunState string

const (
	StateIdle         RunState = "IDLE"
	StateConfirmReset RunState = "CONFIRM_RESET"
	StateProcessing   RunState = "PROCESSING"
	StateSummary      RunState = "SUMMARY"
	StateAborted      RunState = "ABORTED"
)

// FileStatus is the outcome of one file.
type FileStatus string

const (
	FileSuccess   FileStatus = "success"
	FilePartial   FileStatus = "partial"
	FileFailed    FileStatus = "failed"
	FileSkipped   FileStatus = "skipped"
	FileCancelled FileStatus = "cancelled"
)

// FileOutcome records what happened to one target file.
type FileOutcome struct {
	File          string        `json:"file"`
	DocumentKey   string        `json:"document_key,omitempty"`
	DocumentCode  string        `json:"document_code,omitempty"`
	FileHash      string        `json:"file_hash,omitempty"`
	Status        FileStatus    `json:"status"`
	Reason        string        `json:"reason,omitempty"`
	Chunks        int           `json:"chunks"`
	Tables        int           `json:"tables"`
	FailedChunks  int           `json:"failed_chunks"`
	Pages         int           `json:"pages"`
	LowConfidence bool          `json:"low_confidence"`
	Notes         []string      `json:"notes,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
}

// Failed reports whether the file counts as failed in the summary.
func (o *FileOutcome) Failed() bool {
	return o.Status == FileFailed || o.Status == FileCancelled
}

// RunCounts aggregates per-file outcomes.
type RunCounts struct {
	FilesTotal      int `json:"files_total"`
	FilesProcessed  int `json:"files_processed"`
	FilesFailed     int `json:"files_failed"`
	FilesSkipped    int `json:"files_skipped"`
	ChunksCreated   int `json:"chunks_created"`
	ChunksFailed    int `json:"chunks_failed"`
	TablesProcessed int `json:"tables_processed"`
}

// FailedFile is one entry of the failed-files record.
type FailedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// IngestionRun represents one execution of the pipeline.
type IngestionRun struct {
	ID         string        `json:"id"`
	Mode       RunMode       `json:"mode"`
	Reset      bool          `json:"reset"`
	Collection string        `json:"collection"`
	State      RunState      `json:"state"`
	Files      []string      `json:"files"`
	Outcomes   []FileOutcome `json:"outcomes"`
	Counts     RunCounts     `json:"counts"`
	ResetCount int64         `json:"reset_deleted,omitempty"`
	Cancelled  bool          `json:"cancelled"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Record adds a file outcome and updates the aggregate counts. It is not safe for concurrent use;
// the orchestrator calls it from a single aggregation goroutine.
func (r *IngestionRun) Record(o FileOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch {
	case o.Failed():
		r.Counts.FilesFailed++
	case o.Status == FileSkipped:
		r.Counts.FilesSkipped++
	default:
		r.Counts.FilesProcessed++
	}
	r.Counts.ChunksCreated += o.Chunks
	r.Counts.ChunksFailed += o.FailedChunks
	r.Counts.TablesProcessed += o.Tables
}

// FailedFiles lists failed files with their reasons, in recording order.
func (r *IngestionRun) FailedFiles() []FailedFile {
	var out []FailedFile
	for _, o := range r.Outcomes {
		if o.Failed() {
			out = append(out, FailedFile{File: o.File, Reason: o.Reason})
		}
	}
	return out
}

// IndexedDocument is the ledger entry of a document currently held by a collection.
type IndexedDocument struct {
	DocumentKey  string    `json:"document_key"`
	Collection   string    `json:"collection"`
	File         string    `json:"file"`
	FileHash     string    `json:"file_hash"`
	DocumentCode string    `json:"document_code,omitempty"`
	Chunks       int       `json:"chunks"`
	Tables       int       `json:"tables"`
	RunID        string    `json:"run_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
