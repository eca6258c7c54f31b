// Package termview draws the heatmap in a terminal with bubbletea. Each
// terminal cell covers one layout unit horizontally and two vertically,
// which keeps cells close to square on common fonts.
package termview

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kmarket/internal/dashboard"
	"kmarket/internal/palette"
	"kmarket/internal/treemap"
	"kmarket/internal/view"
)

// CellHeight is the number of layout units covered by one terminal row.
const CellHeight = 2

// LayoutOptions is the padding used in the terminal: one column at the
// sides and one row for sector labels.
func LayoutOptions() treemap.Options {
	return treemap.Options{PaddingOuter: 1, PaddingTop: CellHeight, PaddingInner: 0}
}

const (
	backgroundHex = "#000000"
	sectorBandHex = "#171717"
)

// Cell is one rasterized terminal cell. A zero Char marks the trailing half
// of a double-width rune written into the cell before it.
type Cell struct {
	Color    string // background hex color
	Char     rune
	Bold     bool
	Dim      bool
	SectorID string
	StockID  string
}

// Grid is a rows × cols raster of a layout.
type Grid [][]Cell

// Rasterize samples l under transform t at every cell centre. The cell at
// column c, row r covers layout x in [c, c+1) and y in [2r, 2r+2).
func Rasterize(l *treemap.Layout, t view.Transform, cols, rows int) Grid {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	g := make(Grid, rows)
	for r := range g {
		g[r] = make([]Cell, cols)
		for c := range g[r] {
			cell := Cell{Color: backgroundHex, Char: ' '}
			hit := view.HitTest(l, t, float64(c)+0.5, float64(r*CellHeight)+CellHeight/2.0)
			switch {
			case hit.Stock != nil:
				cell.Color = palette.Hex(hit.Stock.Stock.Change)
				cell.SectorID = hit.Sector.ID
				cell.StockID = hit.Stock.Stock.ID
			case hit.Sector != nil:
				cell.Color = sectorBandHex
				cell.SectorID = hit.Sector.ID
			}
			g[r][c] = cell
		}
	}
	if l.Empty() {
		return g
	}

	for i := range l.Sectors {
		sec := &l.Sectors[i]
		for j := range sec.Stocks {
			g.labelStock(&sec.Stocks[j], t)
		}
		g.labelSector(sec, t)
	}
	return g
}

// screenCells returns the cells whose centres fall inside r under t, as
// half-open column and row ranges.
func screenCells(r treemap.Rect, t view.Transform) (c0, r0, c1, r1 int) {
	const half = CellHeight / 2.0
	x0, y0 := t.Apply(r.X0, r.Y0)
	x1, y1 := t.Apply(r.X1, r.Y1)
	return int(math.Ceil(x0 - 0.5)), int(math.Ceil((y0 - half) / CellHeight)),
		int(math.Floor(x1-0.5)) + 1, int(math.Floor((y1-half)/CellHeight)) + 1
}

// labelSector writes the sector name on the first row of its band.
func (g Grid) labelSector(sec *treemap.SectorNode, t view.Transform) {
	c0, r0, c1, _ := screenCells(sec.Rect, t)
	g.write(r0, c0+1, c1-1, sec.Name, true, false)
}

// labelStock centres the name, and the change on the next row when there is
// room, inside the stock's cell span.
func (g Grid) labelStock(st *treemap.StockNode, t view.Transform) {
	c0, r0, c1, r1 := screenCells(st.Rect, t)
	cols, rows := c1-c0, r1-r0
	name := st.Stock.Name
	nw := lipgloss.Width(name)
	if rows < 1 || cols < nw+2 {
		return
	}
	change := dashboard.FormatChange(st.Stock.Change)
	withChange := rows >= 3 && cols >= lipgloss.Width(change)+2

	mid := r0 + (rows-1)/2
	if withChange {
		mid = r0 + (rows-2)/2
	}
	g.write(mid, c0+(cols-nw)/2, c1, name, true, false)
	if withChange {
		cw := lipgloss.Width(change)
		g.write(mid+1, c0+(cols-cw)/2, c1, change, false, true)
	}
}

// write places s on row starting at column c, never past column limit
// (exclusive) or the grid edge. Double-width runes that do not fit are
// dropped with the rest of the string.
func (g Grid) write(row, c, limit int, s string, bold, dim bool) {
	if row < 0 || row >= len(g) {
		return
	}
	line := g[row]
	limit = min(limit, len(line))
	for _, ch := range s {
		w := lipgloss.Width(string(ch))
		if w == 0 {
			continue
		}
		if c < 0 {
			c += w
			continue
		}
		if c+w > limit {
			return
		}
		line[c].Char, line[c].Bold, line[c].Dim = ch, bold, dim
		for k := 1; k < w; k++ {
			line[c+k].Char = 0
		}
		c += w
	}
}

// Render converts the grid to styled terminal text, one line per row.
// Adjacent cells sharing a style are rendered together.
func (g Grid) Render() string {
	var b strings.Builder
	for r, line := range g {
		if r > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		var cur Cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			b.WriteString(cellStyle(cur).Render(run.String()))
			run.Reset()
		}
		for i, cell := range line {
			if cell.Char == 0 {
				continue
			}
			if i > 0 && (cell.Color != cur.Color || cell.Bold != cur.Bold || cell.Dim != cur.Dim) {
				flush()
			}
			cur = cell
			run.WriteRune(cell.Char)
		}
		flush()
	}
	return b.String()
}

func cellStyle(c Cell) lipgloss.Style {
	s := lipgloss.NewStyle().
		Background(lipgloss.Color(c.Color)).
		Foreground(lipgloss.Color("#ffffff"))
	if c.Bold {
		s = s.Bold(true)
	}
	if c.Dim {
		s = s.Foreground(lipgloss.Color("#d4d4d4"))
	}
	return s
}
