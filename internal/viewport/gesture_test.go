package viewport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellboard/cellboard/internal/feed"
	"github.com/cellboard/cellboard/internal/grid"
	"github.com/cellboard/cellboard/internal/model"
)

func newTestController(taken map[string]model.CellState) *Controller {
	var cells []model.Cell
	for id, st := range taken {
		cells = append(cells, model.Cell{ID: id, State: st})
	}
	return NewController(NewSnapshot(cells), NewSelection())
}

func TestDragSelectsFreeCellsOnly(t *testing.T) {
	c := newTestController(map[string]model.CellState{
		"1-1": model.CellOccupied,
	})
	at := time.Now()

	c.PointerDown(grid.Point{Row: 0, Col: 0})
	c.PointerMove(grid.Point{Row: 1, Col: 1})
	res := c.PointerUp(grid.Point{Row: 2, Col: 2}, at)

	assert.Equal(t, ActionSelectionChanged, res.Action)
	sel := c.Selection()
	assert.Equal(t, 8, sel.Len())
	assert.False(t, sel.Contains("1-1"))
	assert.True(t, sel.Contains("0-0"))
	assert.True(t, sel.Contains("2-2"))
}

func TestDragNormalizesCorners(t *testing.T) {
	c := newTestController(nil)
	c.PointerDown(grid.Point{Row: 3, Col: 3})
	c.PointerMove(grid.Point{Row: 1, Col: 1})
	res := c.PointerUp(grid.Point{Row: 1, Col: 1}, time.Now())

	assert.Equal(t, ActionSelectionChanged, res.Action)
	assert.Equal(t, 9, c.Selection().Len())
}

func TestClickTogglesMembership(t *testing.T) {
	c := newTestController(nil)
	p := grid.Point{Row: 5, Col: 5}
	at := time.Now()

	c.PointerDown(p)
	res := c.PointerUp(p, at)
	assert.Equal(t, ActionSelectionChanged, res.Action)
	assert.True(t, c.Selection().Contains("5-5"))

	// Second click outside the double-click window toggles back off.
	later := at.Add(DoubleClickWindow + time.Second)
	c.PointerDown(p)
	res = c.PointerUp(p, later)
	assert.Equal(t, ActionSelectionChanged, res.Action)
	assert.False(t, c.Selection().Contains("5-5"))
}

func TestClickOnTakenCellSelectsNothing(t *testing.T) {
	c := newTestController(map[string]model.CellState{"5-5": model.CellHeld})
	p := grid.Point{Row: 5, Col: 5}

	c.PointerDown(p)
	res := c.PointerUp(p, time.Now())
	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, 0, c.Selection().Len())
}

func TestDoubleClickViewsContentAndUndoesToggle(t *testing.T) {
	c := newTestController(nil)
	p := grid.Point{Row: 5, Col: 5}
	at := time.Now()

	c.PointerDown(p)
	first := c.PointerUp(p, at)
	require.Equal(t, ActionSelectionChanged, first.Action)
	require.True(t, c.Selection().Contains("5-5"))

	c.PointerDown(p)
	second := c.PointerUp(p, at.Add(DoubleClickWindow/2))
	assert.Equal(t, ActionViewContent, second.Action)
	assert.Equal(t, p, second.Cell)
	// View wins over toggle: the first click's selection is rolled back.
	assert.False(t, c.Selection().Contains("5-5"))
}

func TestDoubleClickOnOccupiedCell(t *testing.T) {
	c := newTestController(map[string]model.CellState{"7-7": model.CellOccupied})
	p := grid.Point{Row: 7, Col: 7}
	at := time.Now()

	c.PointerDown(p)
	first := c.PointerUp(p, at)
	require.Equal(t, ActionNone, first.Action)

	c.PointerDown(p)
	second := c.PointerUp(p, at.Add(100*time.Millisecond))
	assert.Equal(t, ActionViewContent, second.Action)
	assert.Equal(t, p, second.Cell)
	assert.Equal(t, 0, c.Selection().Len())
}

func TestDragResetsDoubleClickTracking(t *testing.T) {
	c := newTestController(nil)
	p := grid.Point{Row: 2, Col: 2}
	at := time.Now()

	c.PointerDown(p)
	c.PointerUp(p, at)

	// A drag between the two clicks breaks the pair.
	c.PointerDown(grid.Point{Row: 8, Col: 8})
	c.PointerMove(grid.Point{Row: 9, Col: 9})
	c.PointerUp(grid.Point{Row: 9, Col: 9}, at.Add(50*time.Millisecond))

	c.PointerDown(p)
	res := c.PointerUp(p, at.Add(100*time.Millisecond))
	assert.Equal(t, ActionSelectionChanged, res.Action)
}

func TestSnapshotDeltaChangesSelectionFilter(t *testing.T) {
	snap := NewSnapshot(nil)
	c := NewController(snap, NewSelection())

	// Cell gets taken between render and gesture.
	snap.ApplyDelta(feed.CellDelta{CellID: "0-0", State: model.CellHeld})

	c.PointerDown(grid.Point{Row: 0, Col: 0})
	c.PointerMove(grid.Point{Row: 0, Col: 1})
	res := c.PointerUp(grid.Point{Row: 0, Col: 1}, time.Now())

	assert.Equal(t, ActionSelectionChanged, res.Action)
	assert.Equal(t, []string{"0-1"}, c.Selection().Cells())

	// A FREE delta makes the cell selectable again.
	snap.ApplyDelta(feed.CellDelta{CellID: "0-0", State: model.CellFree})
	assert.Equal(t, model.CellFree, snap.StateOf("0-0"))
}
