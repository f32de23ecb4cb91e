package extract

import (
	"github.com/hyperjump/labia/internal/models"
)

// TableOptions configures grid detection over positioned lines.
type TableOptions struct {
	Disabled   bool
	MinRows    int
	MinColumns int
	// Tolerance is the horizontal slack, in points, when matching a cell to a column.
	Tolerance float64
}

func (o TableOptions) withDefaults() TableOptions {
	if o.MinRows < 2 {
		o.MinRows = 2
	}
	if o.MinColumns < 2 {
		o.MinColumns = 2
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 4
	}
	return o
}

// span is the horizontal extent of a column.
type span struct{ X0, X1 float64 }

// table is a detected grid and the range of lines it covers.
type table struct {
	Data        *models.TableData
	First, Last int
}

// detectTables finds runs of consecutive lines whose cells align on shared columns.
// consumed[i] is true when line i belongs to a table.
func detectTables(lines []line, opts TableOptions) (tables []table, consumed []bool) {
	opts = opts.withDefaults()
	consumed = make([]bool, len(lines))
	if opts.Disabled {
		return nil, consumed
	}

	for i := 0; i < len(lines); {
		if len(lines[i].Segments) < opts.MinColumns {
			i++
			continue
		}
		cols := make([]span, len(lines[i].Segments))
		for k, s := range lines[i].Segments {
			cols[k] = span{s.X0, s.X1}
		}
		rows := [][]string{cellTexts(lines[i].Segments, identity(len(cols)), len(cols))}

		j := i + 1
		for ; j < len(lines); j++ {
			if !adjacent(lines[j-1], lines[j]) {
				break
			}
			idx, ok := assignColumns(lines[j].Segments, cols, opts)
			if !ok {
				break
			}
			for k, c := range idx {
				s := lines[j].Segments[k]
				if s.X0 < cols[c].X0 {
					cols[c].X0 = s.X0
				}
				if s.X1 > cols[c].X1 {
					cols[c].X1 = s.X1
				}
			}
			rows = append(rows, cellTexts(lines[j].Segments, idx, len(cols)))
		}

		if j-i < opts.MinRows {
			i++
			continue
		}
		for k := i; k < j; k++ {
			consumed[k] = true
		}
		tables = append(tables, table{
			Data:  &models.TableData{Headers: rows[0], Rows: rows[1:]},
			First: i,
			Last:  j - 1,
		})
		i = j
	}
	return tables, consumed
}

// adjacent reports whether two consecutive lines are close enough to belong to one grid.
func adjacent(upper, lower line) bool {
	size := upper.Size
	if size <= 0 {
		size = defaultGlyphSize
	}
	return upper.Y-lower.Y <= 2.5*size
}

// assignColumns maps each segment to a distinct column it overlaps, left to right.
func assignColumns(segs []segment, cols []span, opts TableOptions) ([]int, bool) {
	if len(segs) < opts.MinColumns || len(segs) > len(cols) {
		return nil, false
	}
	idx := make([]int, len(segs))
	next := 0
	for k, s := range segs {
		found := -1
		for c := next; c < len(cols); c++ {
			if s.X0 <= cols[c].X1+opts.Tolerance && s.X1 >= cols[c].X0-opts.Tolerance {
				found = c
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		// A cell spilling into the following column means the line is not part of the grid.
		if found+1 < len(cols) && s.X1 > cols[found+1].X0+opts.Tolerance {
			return nil, false
		}
		idx[k] = found
		next = found + 1
	}
	return idx, true
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func cellTexts(segs []segment, idx []int, width int) []string {
	row := make([]string, width)
	for k, c := range idx {
		row[c] = segs[k].Text
	}
	return row
}
