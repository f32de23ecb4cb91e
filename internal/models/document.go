// Package models defines core data structures for extracted blocks, cleaned documents, chunks,
// ingestion runs, and retrieval queries.
package models

import (
	"strings"
	"time"
)

// BlockKind identifies what an extracted block holds.
type BlockKind string

const (
	BlockText      BlockKind = "text"
	BlockTable     BlockKind = "table"
	BlockImageText BlockKind = "image_text"
)

// RawBlock is one unit produced by an extraction backend for a page.
type RawBlock struct {
	Kind    BlockKind  `json:"kind"`
	Page    int        `json:"page"`
	Ordinal int        `json:"ordinal"`
	Content string     `json:"content"`
	Source  string     `json:"source"`
	Table   *TableData `json:"table,omitempty"`
}

// TableData is a detected grid: an optional header row followed by data rows.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Markdown serializes the table as a Markdown grid. The first row acts as the header
// when Headers is empty.
func (t *TableData) Markdown() string {
	if t == nil {
		return ""
	}
	headers := t.Headers
	rows := t.Rows
	if len(headers) == 0 && len(rows) > 0 {
		headers, rows = rows[0], rows[1:]
	}
	width := len(headers)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return ""
	}
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(strings.TrimSpace(cells[i]), "|", "/")
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	writeRow(headers)
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range rows {
		writeRow(r)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Block is a cleaned block of a document. Table blocks keep their extracted content verbatim.
type Block struct {
	Kind       BlockKind `json:"kind"`
	Page       int       `json:"page"`
	Ordinal    int       `json:"ordinal"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	TableIndex int       `json:"table_index,omitempty"`
}

// IsTable reports whether the block is an atomic table.
func (b Block) IsTable() bool { return b.Kind == BlockTable }

// CleanedDocument is the per-PDF aggregate after boilerplate removal.
type CleanedDocument struct {
	Path      string   `json:"path"`
	FileName  string   `json:"file_name"`
	PageCount int      `json:"page_count"`
	Blocks    []Block  `json:"blocks"`
	Notes     []string `json:"notes,omitempty"`

	// Boilerplate holds one instance of each repeated header or footer line removed by cleaning.
	Boilerplate []string `json:"boilerplate,omitempty"`
}

// NewCleanedDocument converts extracted blocks into document blocks in page/ordinal order.
// Table blocks are numbered in reading order starting at 1.
func NewCleanedDocument(path, fileName string, pageCount int, raw []RawBlock, notes []string) *CleanedDocument {
	doc := &CleanedDocument{
		Path:      path,
		FileName:  fileName,
		PageCount: pageCount,
		Blocks:    make([]Block, 0, len(raw)),
		Notes:     append([]string(nil), notes...),
	}
	tables := 0
	for _, rb := range raw {
		b := Block{Kind: rb.Kind, Page: rb.Page, Ordinal: rb.Ordinal, Text: rb.Content, Source: rb.Source}
		if rb.Kind == BlockTable {
			tables++
			b.TableIndex = tables
		}
		doc.Blocks = append(doc.Blocks, b)
	}
	return doc
}

// Text joins the narrative blocks (text and OCR text) with blank lines.
func (d *CleanedDocument) Text() string {
	var parts []string
	for _, b := range d.Blocks {
		if b.IsTable() || strings.TrimSpace(b.Text) == "" {
			continue
		}
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Tables returns the table blocks in reading order.
func (d *CleanedDocument) Tables() []Block {
	var out []Block
	for _, b := range d.Blocks {
		if b.IsTable() {
			out = append(out, b)
		}
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *CleanedDocument) Clone() *CleanedDocument {
	c := *d
	c.Blocks = append([]Block(nil), d.Blocks...)
	c.Notes = append([]string(nil), d.Notes...)
	c.Boilerplate = append([]string(nil), d.Boilerplate...)
	return &c
}

// DocumentMetadata holds structured fields derived from a document.
type DocumentMetadata struct {
	DocumentCode        string     `json:"document_code,omitempty"`
	ReferencedStandards []string   `json:"referenced_standards,omitempty"`
	Revision            string     `json:"revision,omitempty"`
	IssueDate           *time.Time `json:"issue_date,omitempty"`
	TechnicalVariables  []string   `json:"technical_variables,omitempty"`
	SourceFile          string     `json:"source_file"`
	DocumentType        string     `json:"document_type"`
	LowConfidence       bool       `json:"low_confidence"`
}

// IssueDateString returns the issue date as YYYY-MM-DD, or "" when absent.
func (m *DocumentMetadata) IssueDateString() string {
	if m == nil || m.IssueDate == nil {
		return ""
	}
	return m.IssueDate.Format("2006-01-02")
}

// Measurement is a detected quantity expression and its SI rendering.
type Measurement struct {
	OriginalText    string  `json:"original_text"`
	NormalizedValue float64 `json:"normalized_value"`
	NormalizedUnit  string  `json:"normalized_unit"`
}
