package extract

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Source is an opened PDF shared by the backends of one extraction. It is not safe for
// concurrent use.
type Source struct {
	Path string
	data []byte

	native    *pdf.Reader
	nativeErr error

	cpuOnce sync.Once
	cpu     *model.Context
	cpuErr  error

	closers []func()
}

// OpenSource reads path and opens it with the native reader. The content-stream reader is
// opened lazily. It returns ErrUnreadablePDF only when neither reader accepts the file.
func OpenSource(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return NewSource(path, data)
}

// NewSource opens an in-memory PDF.
func NewSource(path string, data []byte) (*Source, error) {
	s := &Source{Path: path, data: data}
	s.native, s.nativeErr = openNative(data)
	if s.native == nil {
		if _, err := s.contentContext(); err != nil {
			return nil, fmt.Errorf("%w: %v; %v", ErrUnreadablePDF, s.nativeErr, err)
		}
	}
	return s, nil
}

func openNative(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("native reader: %v", rec)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("native reader: %w", err)
	}
	return r, nil
}

// contentContext opens the document with pdfcpu in relaxed validation mode.
func (s *Source) contentContext() (*model.Context, error) {
	s.cpuOnce.Do(func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.cpu, s.cpuErr = nil, fmt.Errorf("pdfcpu: %v", rec)
			}
		}()
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(s.data), conf)
		if err != nil {
			s.cpuErr = fmt.Errorf("pdfcpu read: %w", err)
			return
		}
		s.cpu = ctx
	})
	return s.cpu, s.cpuErr
}

// PageCount returns the number of pages as seen by the first reader that opened the file.
func (s *Source) PageCount() int {
	if s.native != nil {
		if n := s.native.NumPage(); n > 0 {
			return n
		}
	}
	if ctx, err := s.contentContext(); err == nil {
		return ctx.PageCount
	}
	return 0
}

// Bytes returns the raw file content.
func (s *Source) Bytes() []byte { return s.data }

// HasImages reports whether the page references image objects.
func (s *Source) HasImages(page int) bool {
	ctx, err := s.contentContext()
	if err != nil || ctx.Optimize == nil {
		return false
	}
	return len(pdfcpu.ImageObjNrs(ctx, page)) > 0
}

// OnClose registers fn to run when the source is closed.
func (s *Source) OnClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// Close releases backend resources attached to the source.
func (s *Source) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
