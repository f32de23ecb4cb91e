package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	defaultGlyphSize = 10.0
	// gaps are measured in multiples of the font size.
	wordGapRatio = 0.2
	cellGapRatio = 1.5
	// a run of this many space glyphs separates cells in space-padded layouts.
	cellSpaceRun = 3
)

// segment is a horizontally contiguous run of text on a line.
type segment struct {
	Text   string
	X0, X1 float64
}

// line is a set of segments sharing a baseline.
type line struct {
	Y        float64
	Size     float64
	Segments []segment
}

// Text joins the segments of the line with single spaces.
func (l line) Text() string {
	parts := make([]string, 0, len(l.Segments))
	for _, s := range l.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// pageLines reads the glyphs of a page and groups them into lines, top to bottom.
func pageLines(p pdf.Page) (lines []line, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			lines, err = nil, fmt.Errorf("read page content: %v", rec)
		}
	}()
	if p.V.IsNull() {
		return nil, nil
	}
	return buildLines(p.Content().Text), nil
}

// buildLines groups glyphs by baseline and splits each line into segments on wide gaps.
func buildLines(glyphs []pdf.Text) []line {
	gs := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		gs = append(gs, g)
	}
	if len(gs) == 0 {
		return nil
	}
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Y > gs[j].Y })

	var lines []line
	start := 0
	for i := 1; i <= len(gs); i++ {
		if i < len(gs) && gs[start].Y-gs[i].Y <= baselineTolerance(gs[start]) {
			continue
		}
		if l, ok := assembleLine(gs[start:i]); ok {
			lines = append(lines, l)
		}
		start = i
	}
	return lines
}

func baselineTolerance(g pdf.Text) float64 {
	size := glyphSize(g)
	if t := size * 0.3; t > 2 {
		return t
	}
	return 2
}

func glyphSize(g pdf.Text) float64 {
	if g.FontSize > 0 {
		return g.FontSize
	}
	return defaultGlyphSize
}

func assembleLine(gs []pdf.Text) (line, bool) {
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].X < gs[j].X })

	l := line{Y: gs[0].Y}
	var (
		cur    strings.Builder
		seg    segment
		open   bool
		spaces int
		end    float64
	)
	closeSeg := func() {
		if !open {
			return
		}
		seg.Text = strings.Join(strings.Fields(cur.String()), " ")
		if seg.Text != "" {
			l.Segments = append(l.Segments, seg)
		}
		cur.Reset()
		open = false
	}

	for _, g := range gs {
		size := glyphSize(g)
		if size > l.Size {
			l.Size = size
		}
		blank := strings.TrimSpace(g.S) == ""
		gap := g.X - end
		switch {
		case !open:
		case gap > cellGapRatio*size:
			closeSeg()
		case !blank && spaces >= cellSpaceRun:
			closeSeg()
		case gap > wordGapRatio*size && !blank && spaces == 0:
			cur.WriteByte(' ')
		}
		if blank {
			spaces++
		} else {
			spaces = 0
		}
		if !open {
			if blank {
				end = g.X + g.W
				continue
			}
			seg = segment{X0: g.X, X1: g.X + g.W}
			open = true
		}
		cur.WriteString(g.S)
		if x1 := g.X + g.W; x1 > seg.X1 {
			seg.X1 = x1
		}
		end = g.X + g.W
	}
	closeSeg()
	return l, len(l.Segments) > 0
}
