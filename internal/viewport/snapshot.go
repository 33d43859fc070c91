// Package viewport implements the client-side selection controller: a
// local mirror of cell states fed by the snapshot and delta stream, a
// windowed view over the board, and the pointer gesture logic that turns
// clicks and drags into a selection.  Everything here is advisory; the
// engine's atomic claim is the only authority on availability.
package viewport

import (
	"sync"

	"github.com/cellboard/cellboard/internal/feed"
	"github.com/cellboard/cellboard/internal/model"
)

// Snapshot is a mirror of non-free cell states.  It bootstraps from a full
// snapshot and stays current by applying the delta stream; cells absent
// from the map are FREE.
type Snapshot struct {
	mu    sync.RWMutex
	cells map[string]model.CellState
}

// NewSnapshot builds a mirror from a full cell dump.
func NewSnapshot(cells []model.Cell) *Snapshot {
	s := &Snapshot{cells: make(map[string]model.CellState, len(cells))}
	for _, c := range cells {
		s.cells[c.ID] = c.State
	}
	return s
}

// ApplyDelta folds one feed delta into the mirror.  A FREE delta removes
// the entry, matching the sparse representation everywhere else.
func (s *Snapshot) ApplyDelta(d feed.CellDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.State == model.CellFree {
		delete(s.cells, d.CellID)
		return
	}
	s.cells[d.CellID] = d.State
}

// StateOf returns the mirrored state of a cell, FREE when unknown.
func (s *Snapshot) StateOf(cellID string) model.CellState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.cells[cellID]; ok {
		return st
	}
	return model.CellFree
}
