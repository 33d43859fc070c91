package viewport

import (
	"github.com/cellboard/cellboard/internal/grid"
)

// Viewport is a pixel window over the board.  Origin is the top-left
// visible cell; CellPx is the rendered size of one cell.
type Viewport struct {
	Origin   grid.Point
	WidthPx  int
	HeightPx int
	CellPx   int
}

// cellPx returns the rendered cell size, clamped to at least one pixel so
// a zero-value Viewport never divides by zero.
func (v Viewport) cellPx() int {
	if v.CellPx < 1 {
		return 1
	}
	return v.CellPx
}

// Visible returns the rectangle of cells the window can show, clamped to
// the board edges.  A window larger than the remaining board simply shows
// less.
func (v Viewport) Visible() grid.Rect {
	px := v.cellPx()
	cols := v.WidthPx / px
	rows := v.HeightPx / px
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	br := grid.Point{
		Row: v.Origin.Row + rows - 1,
		Col: v.Origin.Col + cols - 1,
	}
	if br.Row >= grid.Rows {
		br.Row = grid.Rows - 1
	}
	if br.Col >= grid.Cols {
		br.Col = grid.Cols - 1
	}
	return grid.Rect{TopLeft: v.Origin, BottomRight: br}
}

// CellAt maps window-relative pixel coordinates to the cell under them.
// The boolean is false outside the window or off the board.
func (v Viewport) CellAt(xPx, yPx int) (grid.Point, bool) {
	if xPx < 0 || yPx < 0 || xPx >= v.WidthPx || yPx >= v.HeightPx {
		return grid.Point{}, false
	}
	px := v.cellPx()
	p := grid.Point{
		Row: v.Origin.Row + yPx/px,
		Col: v.Origin.Col + xPx/px,
	}
	if !p.InBounds() {
		return grid.Point{}, false
	}
	return p, true
}

// Pan moves the origin by the given cell offsets, clamped to the board.
func (v *Viewport) Pan(dRow, dCol int) {
	v.Origin.Row += dRow
	v.Origin.Col += dCol
	if v.Origin.Row < 0 {
		v.Origin.Row = 0
	}
	if v.Origin.Col < 0 {
		v.Origin.Col = 0
	}
	if v.Origin.Row >= grid.Rows {
		v.Origin.Row = grid.Rows - 1
	}
	if v.Origin.Col >= grid.Cols {
		v.Origin.Col = grid.Cols - 1
	}
}
