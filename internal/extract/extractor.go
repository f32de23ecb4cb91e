// Package extract turns PDF files into ordered text, table and OCR blocks using a chain of
// extraction backends.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
)

// Result is the output of extracting one document.
type Result struct {
	Blocks    []models.RawBlock
	PageCount int
	// Notes records pages that were recovered partially or not at all.
	Notes []string
	// FailedPages lists pages on which every backend failed.
	FailedPages []int
}

// Chars returns the number of non-space characters across all blocks.
func (r *Result) Chars() int {
	n := 0
	for _, b := range r.Blocks {
		n += utf8.RuneCountInString(strings.Join(strings.Fields(b.Content), ""))
	}
	return n
}

// Extractor runs the backend chain over every page of a PDF. It is safe for concurrent use
// across documents.
type Extractor struct {
	backends         []backend
	minPageChars     int
	minDocumentChars int
	logger           *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for per-page backend decisions.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// withBackends replaces the backend chain.
func withBackends(b ...backend) Option {
	return func(e *Extractor) { e.backends = b }
}

// NewExtractor builds the chain native (with table detection), content stream, then the
// fallbacks available in this build (MuPDF text and OCR with the ocr tag).
func NewExtractor(cfg *config.ExtractConfig, opts ...Option) *Extractor {
	if cfg == nil {
		cfg = &config.ExtractConfig{}
	}
	tables := TableOptions{
		Disabled:   cfg.Tables.Disabled,
		MinRows:    cfg.Tables.MinRows,
		MinColumns: cfg.Tables.MinColumns,
		Tolerance:  cfg.Tables.Tolerance,
	}
	e := &Extractor{
		backends:         append([]backend{&nativeBackend{tables: tables}, contentStreamBackend{}}, fallbackBackends(cfg.OCR)...),
		minPageChars:     cfg.MinPageChars,
		minDocumentChars: cfg.MinDocumentChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the PDF at path and returns its blocks ordered by page and position.
// It fails with ErrUnreadablePDF when the file cannot be opened as a PDF and with
// ErrInsufficientText when the document holds less text than the configured minimum.
func (e *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return e.ExtractSource(ctx, src)
}

// ExtractSource runs the backend chain over an opened source.
func (e *Extractor) ExtractSource(ctx context.Context, src *Source) (*Result, error) {
	res := &Result{PageCount: src.PageCount()}
	if res.PageCount == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrUnreadablePDF)
	}
	for page := 1; page <= res.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blocks, note, failed := e.extractPage(ctx, src, page)
		for i := range blocks {
			blocks[i].Page = page
			blocks[i].Ordinal = i
		}
		res.Blocks = append(res.Blocks, blocks...)
		if note != "" {
			res.Notes = append(res.Notes, note)
		}
		if failed {
			res.FailedPages = append(res.FailedPages, page)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chars := res.Chars(); chars < e.minDocumentChars {
		return nil, fmt.Errorf("%w: %d characters across %d pages", ErrInsufficientText, chars, res.PageCount)
	}
	return res, nil
}

// extractPage returns the first usable backend result for the page. When no backend reaches
// the per-page minimum, the first non-empty result is kept and the page is noted. Tables found
// by a backend that did not win are carried into the winning result, and lines repeating one of
// their rows are dropped from it.
func (e *Extractor) extractPage(ctx context.Context, src *Source, page int) ([]models.RawBlock, string, bool) {
	var (
		fallback     []models.RawBlock
		fallbackFrom string
		tables       []models.RawBlock
		failures     []string
	)
	for _, b := range e.backends {
		if ctx.Err() != nil {
			return nil, "", false
		}
		blocks, err := b.ExtractPage(ctx, src, page)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", b.Name(), err))
			if e.logger != nil {
				e.logger.Debug("backend failed",
					zap.String("file", src.Path), zap.Int("page", page),
					zap.String("backend", b.Name()), zap.Error(err))
			}
			continue
		}
		blocks = nonEmpty(blocks)
		if len(blocks) == 0 {
			continue
		}
		if blockChars(blocks) >= e.minPageChars {
			blocks = withTables(blocks, tables)
			if e.logger != nil {
				e.logger.Debug("page extracted",
					zap.String("file", src.Path), zap.Int("page", page),
					zap.String("backend", b.Name()), zap.Int("blocks", len(blocks)))
			}
			return blocks, "", false
		}
		if fallback == nil {
			fallback, fallbackFrom = blocks, b.Name()
		}
		if tables == nil {
			tables = tableBlocks(blocks)
		}
	}

	switch {
	case fallback != nil:
		return fallback, fmt.Sprintf("page %d: only %d characters recovered (%s)", page, blockChars(fallback), fallbackFrom), false
	case len(failures) == len(e.backends) && len(failures) > 0:
		return nil, fmt.Sprintf("page %d: all backends failed: %s", page, strings.Join(failures, "; ")), true
	case len(failures) > 0:
		return nil, fmt.Sprintf("page %d: no text recovered: %s", page, strings.Join(failures, "; ")), src.HasImages(page)
	case src.HasImages(page):
		return nil, fmt.Sprintf("page %d: image content without recoverable text", page), false
	default:
		return nil, "", false
	}
}

func tableBlocks(blocks []models.RawBlock) []models.RawBlock {
	var out []models.RawBlock
	for _, b := range blocks {
		if b.Kind == models.BlockTable {
			out = append(out, b)
		}
	}
	return out
}

// withTables merges tables detected by an earlier backend into blocks. The tables take the
// place of the first line that repeats one of their rows, or go last when no line does. Lines
// equal to a row are removed. blocks that already hold tables are returned unchanged.
func withTables(blocks, tables []models.RawBlock) []models.RawBlock {
	if len(tables) == 0 || len(tableBlocks(blocks)) > 0 {
		return blocks
	}
	rows := make(map[string]bool)
	for _, t := range tables {
		if t.Table == nil {
			continue
		}
		for _, r := range append([][]string{t.Table.Headers}, t.Table.Rows...) {
			if k := rowKey(strings.Join(r, " ")); k != "" {
				rows[k] = true
			}
		}
	}

	var (
		out    []models.RawBlock
		placed bool
	)
	for _, b := range blocks {
		var kept []string
		flush := func() {
			if len(kept) > 0 {
				nb := b
				nb.Content = strings.Join(kept, "\n")
				out = append(out, nb)
				kept = nil
			}
		}
		for _, l := range strings.Split(b.Content, "\n") {
			if !rows[rowKey(l)] {
				kept = append(kept, l)
				continue
			}
			if !placed {
				flush()
				out = append(out, tables...)
				placed = true
			}
		}
		flush()
	}
	if !placed {
		out = append(out, tables...)
	}
	return nonEmpty(out)
}

func rowKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func nonEmpty(blocks []models.RawBlock) []models.RawBlock {
	out := blocks[:0]
	for _, b := range blocks {
		if strings.TrimSpace(b.Content) != "" {
			out = append(out, b)
		}
	}
	return out
}

func blockChars(blocks []models.RawBlock) int {
	r := Result{Blocks: blocks}
	return r.Chars()
}
