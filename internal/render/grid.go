package render

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/hanpama/hwarang/internal/document"
)

// gridCell is a table cell clipped to the grid, with its text split into lines.
type gridCell struct {
	row, col         int
	rowSpan, colSpan int
	lines            []string
}

// grid is the computed layout of a table. Layout is separated from
// drawing; every index below is within rows x cols.
type grid struct {
	rows, cols int
	cells      []*gridCell

	owner      [][]*gridCell // owner[row][col] = the cell covering this slot
	colWidths  []int         // content width for each column
	rowHeights []int         // display lines for each table row
}

// maxGridSlots bounds rows x cols of a drawn table. Larger tables are
// written as text instead.
const maxGridSlots = 1 << 20

// renderGrid draws a table as an ASCII grid. Cells outside the declared
// dimensions are dropped and spans are clipped to the grid. It returns ""
// for tables with no cells or too many slots to draw.
func renderGrid(t *document.Table) string {
	g := newGrid(t)
	if g == nil {
		return ""
	}
	return g.render()
}

// occupied returns the extent the cells actually cover, clipped to the
// declared dimensions. Declared counts come from the file and are not
// trusted for allocation.
func occupied(t *document.Table) (rows, cols int) {
	for _, c := range t.Cells {
		if c.Row < 0 || c.Col < 0 || c.Row >= t.Rows || c.Col >= t.Cols {
			continue
		}
		rows = max(rows, c.Row+min(max(c.RowSpan, 1), t.Rows-c.Row))
		cols = max(cols, c.Col+min(max(c.ColSpan, 1), t.Cols-c.Col))
	}
	return rows, cols
}

func newGrid(t *document.Table) *grid {
	rows, cols := occupied(t)
	if rows <= 0 || cols <= 0 || rows > maxGridSlots/cols {
		return nil
	}
	g := &grid{
		rows:       rows,
		cols:       cols,
		owner:      make([][]*gridCell, rows),
		colWidths:  make([]int, cols),
		rowHeights: make([]int, rows),
	}
	for i := range g.owner {
		g.owner[i] = make([]*gridCell, cols)
	}

	for _, c := range t.Cells {
		if c.Row < 0 || c.Col < 0 || c.Row >= rows || c.Col >= cols {
			continue
		}
		if g.owner[c.Row][c.Col] != nil {
			continue
		}
		gc := &gridCell{
			row:     c.Row,
			col:     c.Col,
			rowSpan: min(max(c.RowSpan, 1), rows-c.Row),
			colSpan: min(max(c.ColSpan, 1), cols-c.Col),
			lines:   cellLines(c),
		}
		for r := gc.row; r < gc.row+gc.rowSpan; r++ {
			for col := gc.col; col < gc.col+gc.colSpan; col++ {
				if g.owner[r][col] == nil {
					g.owner[r][col] = gc
				}
			}
		}
		g.cells = append(g.cells, gc)
	}

	g.computeColWidths()
	g.computeRowHeights()
	return g
}

func cellLines(c *document.Cell) []string {
	lines := document.Lines(c.Blocks)
	var out []string
	for _, l := range lines {
		l = strings.ReplaceAll(l, "\t", "    ")
		out = append(out, strings.Split(l, "\n")...)
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func maxLineWidth(lines []string) int {
	w := 0
	for _, line := range lines {
		w = max(w, displayWidth(line))
	}
	return w
}

func (g *grid) computeColWidths() {
	for i := range g.colWidths {
		g.colWidths[i] = 1
	}

	// Single-column cells establish initial widths
	for _, c := range g.cells {
		if c.colSpan == 1 {
			g.colWidths[c.col] = max(g.colWidths[c.col], maxLineWidth(c.lines))
		}
	}

	// Spanning cells widen their columns evenly when they do not fit.
	// The separators they cover count toward their width.
	for _, c := range g.cells {
		if c.colSpan == 1 {
			continue
		}
		need := maxLineWidth(c.lines)
		have := (c.colSpan - 1) * 3
		for i := 0; i < c.colSpan; i++ {
			have += g.colWidths[c.col+i]
		}
		if need <= have {
			continue
		}
		extra := need - have
		for i := 0; i < c.colSpan; i++ {
			g.colWidths[c.col+i] += extra / c.colSpan
			if i < extra%c.colSpan {
				g.colWidths[c.col+i]++
			}
		}
	}
}

func (g *grid) computeRowHeights() {
	for i := range g.rowHeights {
		g.rowHeights[i] = 1
	}
	for _, c := range g.cells {
		g.rowHeights[c.row] = max(g.rowHeights[c.row], len(c.lines))
	}
}

func (g *grid) render() string {
	var sb strings.Builder

	sb.WriteString(g.borderLine(-1))
	sb.WriteString("\n")
	for row := 0; row < g.rows; row++ {
		for line := 0; line < g.rowHeights[row]; line++ {
			sb.WriteString(g.contentLine(row, line))
			sb.WriteString("\n")
		}
		sb.WriteString(g.borderLine(row))
		sb.WriteString("\n")
	}
	return sb.String()
}

// borderLine renders the border below row; -1 is the top border.
func (g *grid) borderLine(row int) string {
	var sb strings.Builder
	sb.WriteString("+")
	for col := 0; col < g.cols; col++ {
		fill := " "
		if g.splitsBelow(row, col) {
			fill = "-"
		}
		sb.WriteString(strings.Repeat(fill, g.colWidths[col]+2))

		if col < g.cols-1 {
			if g.junction(row, col) {
				sb.WriteString("+")
			} else {
				sb.WriteString("-")
			}
		}
	}
	sb.WriteString("+")
	return sb.String()
}

// splitsBelow reports whether a horizontal line separates row and row+1 at col.
func (g *grid) splitsBelow(row, col int) bool {
	if row == -1 || row == g.rows-1 {
		return true
	}
	return distinct(g.owner[row][col], g.owner[row+1][col])
}

// distinct treats empty slots as separate cells.
func distinct(a, b *gridCell) bool {
	return a == nil || a != b
}

// junction reports whether the border below row needs a "+" right of col.
func (g *grid) junction(row, col int) bool {
	if row == -1 || row == g.rows-1 {
		return true
	}
	return distinct(g.owner[row][col], g.owner[row][col+1]) ||
		distinct(g.owner[row+1][col], g.owner[row+1][col+1])
}

// contentLine renders display line n of a table row.
func (g *grid) contentLine(row, n int) string {
	var sb strings.Builder
	sb.WriteString("|")

	col := 0
	for col < g.cols {
		owner := g.owner[row][col]
		span := 1
		var text string
		if owner != nil && owner.col == col {
			span = owner.colSpan
			// Row-spanning cells only show text in their first row.
			if owner.row == row && n < len(owner.lines) {
				text = owner.lines[n]
			}
		} else if owner != nil {
			col++
			continue
		}

		width := (span - 1) * 3
		for i := 0; i < span; i++ {
			width += g.colWidths[col+i]
		}
		sb.WriteString(" ")
		sb.WriteString(text)
		sb.WriteString(strings.Repeat(" ", max(width-displayWidth(text), 0)))
		sb.WriteString(" ")

		col += span
		if col < g.cols {
			sb.WriteString("|")
		}
	}

	sb.WriteString("|")
	return sb.String()
}

// displayWidth calculates the display width of a string using go-runewidth,
// so Hangul and other East Asian wide characters count as two columns.
func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}
