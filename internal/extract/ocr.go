//go:build ocr

package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
)

// OCRSupported reports whether the binary was built with MuPDF and Tesseract.
const OCRSupported = true

// fitzDocs keeps one MuPDF handle per open source.
type fitzDocs struct {
	mu   sync.Mutex
	docs map[*Source]*fitz.Document
}

func (f *fitzDocs) get(src *Source) (*fitz.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[src]; ok {
		return doc, nil
	}
	doc, err := fitz.NewFromMemory(src.Bytes())
	if err != nil {
		return nil, fmt.Errorf("open with mupdf: %w", err)
	}
	if f.docs == nil {
		f.docs = make(map[*Source]*fitz.Document)
	}
	f.docs[src] = doc
	src.OnClose(func() {
		f.mu.Lock()
		delete(f.docs, src)
		f.mu.Unlock()
		doc.Close()
	})
	return doc, nil
}

// mupdfBackend reads the text layer with MuPDF, which copes with encodings the pure Go
// readers do not.
type mupdfBackend struct {
	docs *fitzDocs
}

func (b *mupdfBackend) Name() string { return SourceMuPDF }

func (b *mupdfBackend) ExtractPage(ctx context.Context, src *Source, page int) ([]models.RawBlock, error) {
	doc, err := b.docs.get(src)
	if err != nil {
		return nil, err
	}
	text, err := doc.Text(page - 1)
	if err != nil {
		return nil, fmt.Errorf("mupdf text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []models.RawBlock{{Kind: models.BlockText, Page: page, Content: text, Source: SourceMuPDF}}, nil
}

// ocrBackend rasterizes the page and recognizes it with Tesseract.
type ocrBackend struct {
	docs     *fitzDocs
	language string
	dpi      float64
}

func (b *ocrBackend) Name() string { return SourceOCR }

func (b *ocrBackend) ExtractPage(ctx context.Context, src *Source, page int) ([]models.RawBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := b.docs.get(src)
	if err != nil {
		return nil, err
	}
	img, err := doc.ImagePNG(page-1, b.dpi)
	if err != nil {
		return nil, fmt.Errorf("rasterize page: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(b.language); err != nil {
		return nil, fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set ocr image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []models.RawBlock{{Kind: models.BlockImageText, Page: page, Content: text, Source: SourceOCR}}, nil
}

func fallbackBackends(opts config.OCRConfig) []backend {
	docs := &fitzDocs{}
	out := []backend{&mupdfBackend{docs: docs}}
	if !opts.Disabled {
		out = append(out, &ocrBackend{docs: docs, language: opts.Language, dpi: opts.DPI})
	}
	return out
}
