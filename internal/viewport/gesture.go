package viewport

import (
	"time"

	"github.com/cellboard/cellboard/internal/grid"
	"github.com/cellboard/cellboard/internal/model"
)

// DoubleClickWindow is how close together two clicks on the same cell must
// land to count as a double click.
const DoubleClickWindow = 400 * time.Millisecond

// Action is what a completed gesture asks the client to do.
type Action int

const (
	// ActionNone: the gesture changed nothing.
	ActionNone Action = iota
	// ActionSelectionChanged: the selection set was modified; repaint.
	ActionSelectionChanged
	// ActionViewContent: open the content of the cell in Result.Cell.
	ActionViewContent
)

// Result describes the outcome of a pointer-up.
type Result struct {
	Action Action
	Cell   grid.Point
}

// Controller translates pointer gestures into selection changes.  A drag
// selects the free cells of the spanned rectangle; a click toggles one
// cell; a double click views the cell's content instead of toggling, and
// undoes the toggle the first click of the pair applied.
//
// The controller trusts its snapshot mirror only for filtering the
// selection; the claim on the server remains the authority and may still
// refuse cells that changed state under the user's pointer.
type Controller struct {
	snap *Snapshot
	sel  *Selection

	down    bool
	dragged bool
	anchor  grid.Point

	lastClickCell grid.Point
	lastClickAt   time.Time
	lastToggledOn bool
	hasLastClick  bool
}

// NewController wires the gesture state machine to a state mirror and a
// selection.
func NewController(snap *Snapshot, sel *Selection) *Controller {
	return &Controller{snap: snap, sel: sel}
}

// Selection returns the controller's selection set.
func (c *Controller) Selection() *Selection { return c.sel }

// PointerDown anchors a potential drag at p.
func (c *Controller) PointerDown(p grid.Point) {
	c.down = true
	c.dragged = false
	c.anchor = p
}

// PointerMove marks the gesture as a drag once the pointer leaves the
// anchor cell.  Selection preview during the drag is the same rectangle
// computation as PointerUp, so the cost stays bounded by the rectangle
// area.
func (c *Controller) PointerMove(p grid.Point) {
	if c.down && p != c.anchor {
		c.dragged = true
	}
}

// PointerUp completes the gesture at p.
func (c *Controller) PointerUp(p grid.Point, at time.Time) Result {
	if !c.down {
		return Result{Action: ActionNone}
	}
	c.down = false

	if c.dragged || p != c.anchor {
		c.hasLastClick = false
		return c.selectRect(grid.RectFrom(c.anchor, p))
	}
	return c.click(p, at)
}

// selectRect adds every free cell of the rectangle to the selection.
// Non-free cells are skipped, never reported as an error: the user sees
// them painted as taken already.
func (c *Controller) selectRect(r grid.Rect) Result {
	ids, err := r.Cells()
	if err != nil {
		return Result{Action: ActionNone}
	}
	changed := false
	for _, id := range ids {
		if c.snap.StateOf(id) != model.CellFree {
			continue
		}
		if !c.sel.Contains(id) {
			c.sel.Add(id)
			changed = true
		}
	}
	if !changed {
		return Result{Action: ActionNone}
	}
	return Result{Action: ActionSelectionChanged}
}

func (c *Controller) click(p grid.Point, at time.Time) Result {
	if c.hasLastClick && p == c.lastClickCell && at.Sub(c.lastClickAt) <= DoubleClickWindow {
		// Second click of a double click: view wins over toggle, so the
		// first click's membership flip is rolled back.
		c.hasLastClick = false
		if c.lastToggledOn {
			c.sel.Remove(p.CellID())
		}
		return Result{Action: ActionViewContent, Cell: p}
	}

	c.lastClickCell = p
	c.lastClickAt = at
	c.hasLastClick = true
	c.lastToggledOn = false

	id := p.CellID()
	if c.sel.Contains(id) {
		c.sel.Remove(id)
		return Result{Action: ActionSelectionChanged}
	}
	if c.snap.StateOf(id) != model.CellFree {
		// Not selectable; the click may still become a double click that
		// views the occupant's content.
		return Result{Action: ActionNone}
	}
	c.sel.Add(id)
	c.lastToggledOn = true
	return Result{Action: ActionSelectionChanged}
}
