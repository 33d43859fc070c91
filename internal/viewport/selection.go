package viewport

import "sort"

// Selection is the set of cells the user intends to buy.  Order is not
// tracked; Cells returns a sorted slice for stable rendering and requests.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Add puts a cell into the selection.
func (s *Selection) Add(cellID string) { s.ids[cellID] = struct{}{} }

// Remove takes a cell out of the selection.
func (s *Selection) Remove(cellID string) { delete(s.ids, cellID) }

// Toggle flips a cell's membership and reports whether it is now selected.
func (s *Selection) Toggle(cellID string) bool {
	if _, ok := s.ids[cellID]; ok {
		delete(s.ids, cellID)
		return false
	}
	s.ids[cellID] = struct{}{}
	return true
}

// Contains reports membership.
func (s *Selection) Contains(cellID string) bool {
	_, ok := s.ids[cellID]
	return ok
}

// Len returns the number of selected cells.
func (s *Selection) Len() int { return len(s.ids) }

// Clear empties the selection.
func (s *Selection) Clear() { s.ids = make(map[string]struct{}) }

// Cells returns the selected cell ids, sorted.
func (s *Selection) Cells() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Replace swaps the whole selection, used when restoring a session.
func (s *Selection) Replace(cellIDs []string) {
	s.ids = make(map[string]struct{}, len(cellIDs))
	for _, id := range cellIDs {
		s.ids[id] = struct{}{}
	}
}
