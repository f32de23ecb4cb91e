// Package report persists the artifacts of an ingestion run: the JSON run log, the failed-files
// record and the Excel workbook.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/models"
)

// FailedFilesName is the failed-files record written at the root of the log directory.
const FailedFilesName = "failed_files.json"

// Artifacts are the paths written for one run.
type Artifacts struct {
	RunLog      string `json:"run_log"`
	FailedFiles string `json:"failed_files"`
	Workbook    string `json:"workbook,omitempty"`
}

// Writer writes run artifacts under a log directory.
type Writer struct {
	dir      string
	workbook bool
	logger   *zap.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets a logger that reports the written artifacts.
func WithLogger(l *zap.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// WithWorkbook enables or disables the Excel workbook.
func WithWorkbook(enabled bool) Option {
	return func(w *Writer) { w.workbook = enabled }
}

// NewWriter creates a writer for dir. The workbook is enabled by default.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, workbook: true}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// baseName is the shared file name of a run's log and workbook.
func baseName(run *models.IngestionRun) string {
	return run.StartedAt.UTC().Format("20060102T150405Z") + "_" + run.ID
}

// Write persists the artifacts of run.
func (w *Writer) Write(run *models.IngestionRun) (*Artifacts, error) {
	runsDir := filepath.Join(w.dir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}
	a := &Artifacts{
		RunLog:      filepath.Join(runsDir, baseName(run)+".json"),
		FailedFiles: filepath.Join(w.dir, FailedFilesName),
	}
	if err := writeJSON(a.RunLog, run); err != nil {
		return nil, fmt.Errorf("failed to write run log: %w", err)
	}
	failed := run.FailedFiles()
	if failed == nil {
		failed = []models.FailedFile{}
	}
	if err := writeJSON(a.FailedFiles, failed); err != nil {
		return nil, fmt.Errorf("failed to write failed-files record: %w", err)
	}
	if w.workbook {
		a.Workbook = filepath.Join(runsDir, baseName(run)+".xlsx")
		if err := writeWorkbook(a.Workbook, run); err != nil {
			return nil, fmt.Errorf("failed to write workbook: %w", err)
		}
	}
	if w.logger != nil {
		w.logger.Info("run artifacts written",
			zap.String("run_id", run.ID),
			zap.String("run_log", a.RunLog),
			zap.String("workbook", a.Workbook))
	}
	return a, nil
}

// writeJSON writes v indented to a temporary file and renames it over path.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadRunLog loads a run log written by Write.
func ReadRunLog(path string) (*models.IngestionRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run models.IngestionRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run log %s: %w", path, err)
	}
	return &run, nil
}
