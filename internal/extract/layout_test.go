package extract

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

// glyphs lays s out from x at baseline y with a 5pt advance per glyph.
func glyphs(x, y float64, s string) []pdf.Text {
	var out []pdf.Text
	for _, r := range s {
		out = append(out, pdf.Text{FontSize: 10, X: x, Y: y, W: 5, S: string(r)})
		x += 5
	}
	return out
}

func TestBuildLines(t *testing.T) {
	var gs []pdf.Text
	gs = append(gs, glyphs(72, 700, "segunda linea")...)
	gs = append(gs, glyphs(72, 714, "primera")...)
	gs = append(gs, glyphs(72+40, 714.5, "continua")...) // word gap of 5pt on the same baseline
	gs = append(gs, glyphs(300, 714, "celda")...)
	gs = append(gs, pdf.Text{FontSize: 10, X: 400, Y: 714, S: "\n"})

	lines := buildLines(gs)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	top := lines[0]
	if len(top.Segments) != 2 {
		t.Fatalf("top segments = %+v", top.Segments)
	}
	if top.Segments[0].Text != "primera continua" || top.Segments[1].Text != "celda" {
		t.Errorf("top segments = %+v", top.Segments)
	}
	if top.Segments[1].X0 != 300 || top.Segments[1].X1 != 325 {
		t.Errorf("cell span = [%v, %v]", top.Segments[1].X0, top.Segments[1].X1)
	}
	if got := lines[1].Text(); got != "segunda linea" {
		t.Errorf("second line = %q", got)
	}
}

func TestBuildLines_spacePadding(t *testing.T) {
	lines := buildLines(glyphs(72, 700, "Ensayo     Resultado"))
	if len(lines) != 1 || len(lines[0].Segments) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].Segments[1].Text != "Resultado" {
		t.Errorf("segments = %+v", lines[0].Segments)
	}
}

func TestBuildLines_empty(t *testing.T) {
	if lines := buildLines(nil); lines != nil {
		t.Errorf("lines = %+v", lines)
	}
	if lines := buildLines(glyphs(72, 700, "   ")); len(lines) != 0 {
		t.Errorf("blank lines = %+v", lines)
	}
}

func row(y float64, cells ...[2]any) line {
	l := line{Y: y, Size: 10}
	for _, c := range cells {
		x := c[0].(float64)
		s := c[1].(string)
		l.Segments = append(l.Segments, segment{Text: s, X0: x, X1: x + 5*float64(len(s))})
	}
	return l
}

func TestDetectTables(t *testing.T) {
	lines := []line{
		row(750, [2]any{72.0, "Registrar los resultados en la tabla."}),
		row(736, [2]any{72.0, "Ensayo"}, [2]any{192.0, "Resultado"}),
		row(722, [2]any{72.0, "Resistencia"}, [2]any{196.0, "25"}),
		row(708, [2]any{72.0, "Revenimiento"}, [2]any{194.0, "10"}),
		row(694, [2]any{72.0, "Las probetas se descartan al final del ensayo."}),
	}
	tables, consumed := detectTables(lines, TableOptions{})
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}
	tb := tables[0]
	if tb.First != 1 || tb.Last != 3 {
		t.Errorf("table spans lines %d..%d, want 1..3", tb.First, tb.Last)
	}
	wantConsumed := []bool{false, true, true, true, false}
	for i, c := range consumed {
		if c != wantConsumed[i] {
			t.Errorf("consumed[%d] = %v", i, c)
		}
	}
	if got := tb.Data.Headers; len(got) != 2 || got[0] != "Ensayo" || got[1] != "Resultado" {
		t.Errorf("headers = %v", got)
	}
	if len(tb.Data.Rows) != 2 || tb.Data.Rows[1][0] != "Revenimiento" {
		t.Errorf("rows = %v", tb.Data.Rows)
	}
}

func TestDetectTables_missingCell(t *testing.T) {
	lines := []line{
		row(736, [2]any{72.0, "Ensayo"}, [2]any{192.0, "Valor"}, [2]any{312.0, "Unidad"}),
		row(722, [2]any{72.0, "Resistencia"}, [2]any{312.0, "MPa"}),
		row(708, [2]any{72.0, "Revenimiento"}, [2]any{192.0, "10"}, [2]any{312.0, "cm"}),
	}
	tables, _ := detectTables(lines, TableOptions{})
	if len(tables) != 1 {
		t.Fatalf("got %d tables", len(tables))
	}
	got := tables[0].Data.Rows[0]
	if len(got) != 3 || got[0] != "Resistencia" || got[1] != "" || got[2] != "MPa" {
		t.Errorf("row = %q", got)
	}
}

func TestDetectTables_rejects(t *testing.T) {
	tests := []struct {
		name  string
		lines []line
	}{
		{"single row", []line{
			row(736, [2]any{72.0, "Ensayo"}, [2]any{192.0, "Resultado"}),
			row(722, [2]any{72.0, "Texto narrativo que sigue a la fila."}),
		}},
		{"misaligned columns", []line{
			row(736, [2]any{72.0, "Ensayo"}, [2]any{192.0, "Resultado"}),
			row(722, [2]any{72.0, "Resistencia"}, [2]any{400.0, "25"}),
		}},
		{"rows too far apart", []line{
			row(736, [2]any{72.0, "Ensayo"}, [2]any{192.0, "Resultado"}),
			row(600, [2]any{72.0, "Resistencia"}, [2]any{192.0, "25"}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, consumed := detectTables(tt.lines, TableOptions{})
			if len(tables) != 0 {
				t.Errorf("unexpected tables %+v", tables)
			}
			for i, c := range consumed {
				if c {
					t.Errorf("line %d consumed", i)
				}
			}
		})
	}
}

func TestLayoutBlocks(t *testing.T) {
	lines := []line{
		row(750, [2]any{72.0, "5. PROCEDIMIENTO"}),
		row(736, [2]any{72.0, "Ensayo"}, [2]any{192.0, "Resultado"}),
		row(722, [2]any{72.0, "Resistencia"}, [2]any{192.0, "25"}),
		row(708, [2]any{72.0, "Fin del procedimiento."}),
	}
	blocks := layoutBlocks(lines, 4, TableOptions{})
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	if blocks[0].Content != "5. PROCEDIMIENTO" || blocks[2].Content != "Fin del procedimiento." {
		t.Errorf("text blocks = %q, %q", blocks[0].Content, blocks[2].Content)
	}
	if blocks[1].Table == nil || blocks[1].Page != 4 {
		t.Errorf("table block = %+v", blocks[1])
	}
}
