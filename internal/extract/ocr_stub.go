//go:build !ocr

package extract

import (
	"context"

	"github.com/hyperjump/labia/internal/config"
	"github.com/hyperjump/labia/internal/models"
)

// OCRSupported reports whether the binary was built with MuPDF and Tesseract.
const OCRSupported = false

// ocrBackend stands in for the Tesseract backend in builds without the ocr tag.
type ocrBackend struct{}

func (ocrBackend) Name() string { return SourceOCR }

func (ocrBackend) ExtractPage(context.Context, *Source, int) ([]models.RawBlock, error) {
	return nil, ErrOCRUnavailable
}

func fallbackBackends(opts config.OCRConfig) []backend {
	if opts.Disabled {
		return nil
	}
	return []backend{ocrBackend{}}
}
