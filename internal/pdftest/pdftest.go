// Package pdftest writes small, valid PDF files for tests. Pages hold text placed at absolute
// positions with a WinAnsi Helvetica font, which is enough to exercise row and table detection.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Default layout values, in points.
const (
	DefaultFontSize   = 10.0
	DefaultLeftMargin = 72.0
	DefaultTop        = 750.0
	DefaultLeading    = 14.0
	PageWidth         = 612.0
	PageHeight        = 792.0

	// glyphWidth is the advance of every glyph in 1/1000 text space units.
	glyphWidth = 500
)

// Item is one positioned string.
type Item struct {
	X, Y float64
	Size float64
	Text string
}

// Page is a page under construction. Lines added with Line and Table flow top-down from
// DefaultTop; Text places an item at an absolute position.
type Page struct {
	items  []Item
	cursor float64
	raw    string
}

// NewPage returns an empty page whose flow cursor starts at DefaultTop.
func NewPage() *Page {
	return &Page{cursor: DefaultTop}
}

// Text places s at (x, y).
func (p *Page) Text(x, y float64, s string) *Page {
	p.items = append(p.items, Item{X: x, Y: y, Size: DefaultFontSize, Text: s})
	return p
}

// Line adds each string as a line at the left margin, moving the cursor down.
func (p *Page) Line(lines ...string) *Page {
	for _, l := range lines {
		if l != "" {
			p.Text(DefaultLeftMargin, p.cursor, l)
		}
		p.cursor -= DefaultLeading
	}
	return p
}

// Paragraph splits text on newlines and adds each line.
func (p *Page) Paragraph(text string) *Page {
	return p.Line(strings.Split(text, "\n")...)
}

// Table adds a grid with one column every colWidth points, one row per leading.
func (p *Page) Table(colWidth float64, rows ...[]string) *Page {
	for _, row := range rows {
		for i, cell := range row {
			if cell == "" {
				continue
			}
			p.Text(DefaultLeftMargin+float64(i)*colWidth, p.cursor, cell)
		}
		p.cursor -= DefaultLeading
	}
	return p
}

// Raw replaces the generated content stream with s.
func (p *Page) Raw(s string) *Page {
	p.raw = s
	return p
}

// Items returns the positioned strings of the page.
func (p *Page) Items() []Item {
	return append([]Item(nil), p.items...)
}

func (p *Page) content() string {
	if p.raw != "" {
		return p.raw
	}
	var b strings.Builder
	for _, it := range p.items {
		fmt.Fprintf(&b, "BT /F1 %s Tf 1 0 0 1 %s %s Tm (%s) Tj ET\n",
			num(it.Size), num(it.X), num(it.Y), escape(it.Text))
	}
	return b.String()
}

// Build renders the pages as a complete PDF document.
func Build(pages ...*Page) []byte {
	if len(pages) == 0 {
		pages = []*Page{NewPage()}
	}

	// Objects: 1 catalog, 2 page tree, 3 font, then a page and its content stream per page.
	objects := []string{"", ""}
	var widths strings.Builder
	for c := 32; c <= 255; c++ {
		if c > 32 {
			widths.WriteByte(' ')
		}
		fmt.Fprintf(&widths, "%d", glyphWidth)
	}
	objects = append(objects, fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 255 /Widths [%s] >>",
		widths.String()))

	var kids []string
	for _, p := range pages {
		pageNum := len(objects) + 1
		contentNum := pageNum + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			num(PageWidth), num(PageHeight), contentNum))
		stream := p.content()
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}
	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// WriteFile builds the document and writes it to path.
func WriteFile(path string, pages ...*Page) error {
	return os.WriteFile(path, Build(pages...), 0o600)
}

// Corrupt returns bytes that look like a PDF header but cannot be parsed.
func Corrupt() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R\nthis is not a pdf body\n")
}

func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// escape encodes s as a WinAnsi literal string body. Runes outside Latin-1 become '?'.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteByte(byte(r))
		case r < 0x80:
			b.WriteByte(byte(r))
		case r >= 0xA0 && r <= 0xFF:
			fmt.Fprintf(&b, "\\%03o", r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
