package model

// CellState is the occupancy state of a single grid cell.  A cell is in
// exactly one state at any instant; FREE cells carry no row in the durable
// store.
type CellState string

const (
	CellFree     CellState = "FREE"
	CellHeld     CellState = "HELD"
	CellOccupied CellState = "OCCUPIED"
)

// Cell is a non-free cell with its owning reference.  HoldID is set iff the
// cell is HELD, SubmissionID iff it is OCCUPIED; the two are mutually
// exclusive.
type Cell struct {
	ID           string    `json:"cell_id"`
	State        CellState `json:"state"`
	HoldID       string    `json:"hold_id,omitempty"`
	SubmissionID string    `json:"submission_id,omitempty"`
}
