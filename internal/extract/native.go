package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/labia/internal/models"
)

// Backend source tags recorded on raw blocks.
const (
	SourceNative        = "native"
	SourceTable         = "table"
	SourceContentStream = "contentstream"
	SourceMuPDF         = "mupdf"
	SourceOCR           = "ocr"
)

// backend recovers the blocks of one page. Blocks are returned in reading order; the
// extractor assigns page ordinals.
type backend interface {
	Name() string
	ExtractPage(ctx context.Context, src *Source, page int) ([]models.RawBlock, error)
}

// nativeBackend reads positioned glyphs, detects tables among the resulting lines and
// emits narrative text around them.
type nativeBackend struct {
	tables TableOptions
}

func (b *nativeBackend) Name() string { return SourceNative }

func (b *nativeBackend) ExtractPage(ctx context.Context, src *Source, page int) ([]models.RawBlock, error) {
	if src.native == nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, src.nativeErr)
	}
	lines, err := pageLines(src.native.Page(page))
	if err != nil {
		return nil, err
	}
	return layoutBlocks(lines, page, b.tables), nil
}

// layoutBlocks turns page lines into text and table blocks, keeping their vertical order.
func layoutBlocks(lines []line, page int, opts TableOptions) []models.RawBlock {
	tables, consumed := detectTables(lines, opts)

	var (
		blocks []models.RawBlock
		text   []string
	)
	flushText := func() {
		if len(text) == 0 {
			return
		}
		blocks = append(blocks, models.RawBlock{
			Kind:    models.BlockText,
			Page:    page,
			Content: strings.Join(text, "\n"),
			Source:  SourceNative,
		})
		text = nil
	}

	next := 0
	for i, l := range lines {
		if !consumed[i] {
			text = append(text, l.Text())
			continue
		}
		if next < len(tables) && tables[next].First == i {
			flushText()
			t := tables[next]
			blocks = append(blocks, models.RawBlock{
				Kind:    models.BlockTable,
				Page:    page,
				Content: t.Data.Markdown(),
				Source:  SourceTable,
				Table:   t.Data,
			})
			next++
		}
	}
	flushText()
	return blocks
}
