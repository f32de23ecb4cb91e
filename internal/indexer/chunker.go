// Package indexer turns a PDF into chunks and writes them, embedded, to the collection.
package indexer

import (
	"strings"
	"unicode"

	"github.com/hyperjump/labia/internal/fileid"
	"github.com/hyperjump/labia/internal/models"
	"github.com/hyperjump/labia/internal/units"
)

// sentenceEnds are the punctuation marks that end a sentence when followed by whitespace.
const sentenceEnds = ".?!;:"

// Chunker splits sections into overlapping token windows. Tables become single chunks and never
// take part in windowing.
type Chunker struct {
	size       int
	overlap    int
	count      TokenCounter
	normalizer *units.Normalizer
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithTokenCounter replaces the default RuneTokens counter.
func WithTokenCounter(tc TokenCounter) ChunkerOption {
	return func(c *Chunker) { c.count = tc }
}

// WithMeasurements records the measurements found in each chunk.
func WithMeasurements(n *units.Normalizer) ChunkerOption {
	return func(c *Chunker) { c.normalizer = n }
}

// NewChunker creates a chunker with the given size and overlap (in tokens).
func NewChunker(size, overlap int, opts ...ChunkerOption) *Chunker {
	if size <= 0 {
		size = 1024
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	c := &Chunker{size: size, overlap: overlap, count: RuneTokens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits sections into chunks in reading order. Narrative blocks between two tables of a
// section are windowed together; a table ends the current run and becomes one chunk whose text is
// exactly the table block. Index, document key, metadata and content hash are set on every chunk.
func (c *Chunker) Chunk(docKey string, sections []models.Section, meta *models.DocumentMetadata) []models.Chunk {
	var out []models.Chunk
	for _, sec := range sections {
		var run []models.Block
		flush := func() {
			for _, p := range c.narrative(run) {
				out = append(out, models.Chunk{Text: p.text, Page: p.page, Section: sec.Name})
			}
			run = nil
		}
		for _, b := range sec.Blocks {
			if !b.IsTable() {
				run = append(run, b)
				continue
			}
			flush()
			if strings.TrimSpace(b.Text) == "" {
				continue
			}
			out = append(out, models.Chunk{
				Text:       b.Text,
				Page:       b.Page,
				Section:    sec.Name,
				TableFlag:  true,
				TableIndex: b.TableIndex,
			})
		}
		flush()
	}

	for i := range out {
		ch := &out[i]
		ch.Index = i
		ch.DocumentKey = docKey
		ch.Metadata = meta
		ch.ContentHash = fileid.ContentHash(ch.Text)
		ch.Tokens = c.count(ch.Text)
		if c.normalizer != nil {
			if ms := c.normalizer.Scan(ch.Text); len(ms) > 0 {
				ch.Measurements = ms
			}
		}
	}
	return out
}

type piece struct {
	text string
	page int
}

// narrative windows the text of consecutive narrative blocks.
func (c *Chunker) narrative(blocks []models.Block) []piece {
	var (
		runes   []rune
		offsets []int
		pages   []int
	)
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		if len(runes) > 0 {
			runes = append(runes, '\n', '\n')
		}
		offsets = append(offsets, len(runes))
		pages = append(pages, b.Page)
		runes = append(runes, []rune(text)...)
	}
	if len(runes) == 0 {
		return nil
	}

	pageAt := func(pos int) int {
		p := pages[0]
		for i, off := range offsets {
			if off > pos {
				break
			}
			p = pages[i]
		}
		return p
	}

	var out []piece
	for _, s := range c.split(runes) {
		text := strings.TrimSpace(string(runes[s.start:s.end]))
		if text == "" {
			continue
		}
		out = append(out, piece{text: text, page: pageAt(s.start)})
	}
	return out
}

type span struct{ start, end int }

// split cuts r into windows of at most c.size tokens. Each window after the first starts at the
// word boundary following the point c.overlap tokens before the previous cut.
func (c *Chunker) split(r []rune) []span {
	n := len(r)
	var spans []span
	start := skipSpace(r, 0)
	prevCut := 0
	for start < n {
		end := c.maxEnd(r, start)
		if end <= prevCut && prevCut > start {
			// The overlap leaves no room for new text; continue without it.
			start = skipSpace(r, prevCut)
			if start >= n {
				break
			}
			end = c.maxEnd(r, start)
		}
		if end >= n {
			spans = append(spans, span{start, n})
			break
		}
		lo := start + (end-start)/2
		if lo <= prevCut {
			lo = prevCut + 1
		}
		if lo <= start {
			lo = start + 1
		}
		cut := bestCut(r, lo, end)
		spans = append(spans, span{start, cut})
		prevCut = cut
		start = skipSpace(r, c.overlapStart(r, start, cut))
	}
	return spans
}

// maxEnd returns the largest end such that r[start:end] fits in the window, and at least start+1.
func (c *Chunker) maxEnd(r []rune, start int) int {
	lo, hi := start+1, len(r)
	if c.count(string(r[start:hi])) <= c.size {
		return hi
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.count(string(r[start:mid])) <= c.size {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// overlapStart returns where the next window begins so that it repeats about c.overlap tokens of
// r[start:cut], moved forward to the next word boundary.
func (c *Chunker) overlapStart(r []rune, start, cut int) int {
	if c.overlap == 0 {
		return cut
	}
	lo, hi := start+1, cut
	for lo < hi {
		mid := (lo + hi) / 2
		if c.count(string(r[mid:cut])) <= c.overlap {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	p := lo
	if p > 0 && p < cut && !unicode.IsSpace(r[p-1]) {
		for j := p; j < cut; j++ {
			if unicode.IsSpace(r[j]) {
				return j
			}
		}
	}
	return p
}

// bestCut picks the chunk end in [lo, end]: after a paragraph break, after sentence-ending
// punctuation, after a line break, before whitespace, or a hard cut at end.
func bestCut(r []rune, lo, end int) int {
	n := len(r)
	for i := end; i >= lo; i-- {
		if i >= 2 && r[i-1] == '\n' && r[i-2] == '\n' {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if i >= 1 && i < n && strings.ContainsRune(sentenceEnds, r[i-1]) && unicode.IsSpace(r[i]) {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if i >= 1 && r[i-1] == '\n' {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if i < n && unicode.IsSpace(r[i]) {
			return i
		}
	}
	return end
}

func skipSpace(r []rune, i int) int {
	for i < len(r) && unicode.IsSpace(r[i]) {
		i++
	}
	return i
}
