// Package grid defines the fixed 1000x1000 address space that every other
// component operates on.  It converts between (row, column) pairs and the
// canonical cell identifier, and expands rectangles into deterministic
// row-major cell-id sequences.  All functions are pure; the package holds
// no state.
package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rows and Cols fix the bounds of the grid.  Valid coordinates are
// 0 <= row < Rows and 0 <= col < Cols.
const (
	Rows = 1000
	Cols = 1000
)

// ErrInvalidRectangle is returned when a rectangle's corners are out of
// bounds or its bottom-right corner lies above or left of its top-left
// corner.  Inputs failing this check are rejected before any store is
// touched.
var ErrInvalidRectangle = errors.New("invalid rectangle")

// Point identifies a single cell by row and column.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InBounds reports whether the point lies inside the grid.
func (p Point) InBounds() bool {
	return p.Row >= 0 && p.Row < Rows && p.Col >= 0 && p.Col < Cols
}

// CellID returns the point's canonical cell identifier.
func (p Point) CellID() string { return CellID(p.Row, p.Col) }

// Rect is the inclusive rectangle [TopLeft, BottomRight].
type Rect struct {
	TopLeft     Point `json:"top_left"`
	BottomRight Point `json:"bottom_right"`
}

// RectFrom builds the normalized rectangle spanned by two arbitrary corner
// points, i.e. the min/max of the two coordinates.  The result may still be
// out of bounds; callers validate via Validate or Cells.
func RectFrom(a, b Point) Rect {
	r := Rect{TopLeft: a, BottomRight: b}
	if b.Row < a.Row {
		r.TopLeft.Row, r.BottomRight.Row = b.Row, a.Row
	}
	if b.Col < a.Col {
		r.TopLeft.Col, r.BottomRight.Col = b.Col, a.Col
	}
	return r
}

// Validate checks bounds and corner ordering.  It returns
// ErrInvalidRectangle when the rectangle cannot name a non-empty in-bounds
// cell set.
func (r Rect) Validate() error {
	if !r.TopLeft.InBounds() || !r.BottomRight.InBounds() {
		return fmt.Errorf("%w: corner out of [0,%d)x[0,%d)", ErrInvalidRectangle, Rows, Cols)
	}
	if r.BottomRight.Row < r.TopLeft.Row || r.BottomRight.Col < r.TopLeft.Col {
		return fmt.Errorf("%w: bottom-right above or left of top-left", ErrInvalidRectangle)
	}
	return nil
}

// Area returns the number of cells the rectangle covers.  Undefined for
// invalid rectangles.
func (r Rect) Area() int {
	return (r.BottomRight.Row - r.TopLeft.Row + 1) * (r.BottomRight.Col - r.TopLeft.Col + 1)
}

// Cells expands the rectangle into its cell identifiers in row-major order.
// The order is deterministic so two independent expansions of the same
// rectangle always compare equal element-wise.
func (r Rect) Cells() ([]string, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, r.Area())
	for row := r.TopLeft.Row; row <= r.BottomRight.Row; row++ {
		for col := r.TopLeft.Col; col <= r.BottomRight.Col; col++ {
			ids = append(ids, CellID(row, col))
		}
	}
	return ids, nil
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.Row >= r.TopLeft.Row && p.Row <= r.BottomRight.Row &&
		p.Col >= r.TopLeft.Col && p.Col <= r.BottomRight.Col
}

// CellID returns the canonical identifier for a cell, "row-col".  The
// mapping is collision-free because neither component contains the
// separator.
func CellID(row, col int) string {
	return strconv.Itoa(row) + "-" + strconv.Itoa(col)
}

// ParseCellID is the inverse of CellID.  It rejects identifiers that do not
// name an in-bounds cell, and non-canonical spellings like "007-1" that
// would never match a stored id.
func ParseCellID(id string) (Point, error) {
	dash := strings.IndexByte(id, '-')
	if dash <= 0 {
		return Point{}, fmt.Errorf("malformed cell id %q", id)
	}
	row, err := strconv.Atoi(id[:dash])
	if err != nil {
		return Point{}, fmt.Errorf("malformed cell id %q", id)
	}
	col, err := strconv.Atoi(id[dash+1:])
	if err != nil {
		return Point{}, fmt.Errorf("malformed cell id %q", id)
	}
	p := Point{Row: row, Col: col}
	if !p.InBounds() {
		return Point{}, fmt.Errorf("cell id %q out of bounds", id)
	}
	if p.CellID() != id {
		return Point{}, fmt.Errorf("malformed cell id %q", id)
	}
	return p, nil
}
