package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cellboard/cellboard/internal/model"
)

// Memory is a mutex-guarded in-memory Store.  A single lock serializes
// every multi-cell mutation, which is exactly the atomicity the contract
// asks for.  It backs the engine tests and local development without a
// database; cells are stored sparsely, absence meaning FREE.
type Memory struct {
	mu         sync.Mutex
	cells      map[string]model.Cell        // non-free cells only
	holds      map[string]*model.Hold       // live holds by id
	byCheckout map[string]string            // checkout ref -> hold id
	subs       map[string]*model.Submission // submissions by id
	byPayment  map[string]string            // payment ref -> submission id
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		cells:      make(map[string]model.Cell),
		holds:      make(map[string]*model.Hold),
		byCheckout: make(map[string]string),
		subs:       make(map[string]*model.Submission),
		byPayment:  make(map[string]string),
	}
}

func (m *Memory) GetStates(_ context.Context, cellIDs []string) (map[string]model.CellState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.CellState, len(cellIDs))
	for _, id := range cellIDs {
		if c, ok := m.cells[id]; ok {
			out[id] = c.State
		} else {
			out[id] = model.CellFree
		}
	}
	return out, nil
}

func (m *Memory) Snapshot(_ context.Context) ([]model.Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Cell, 0, len(m.cells))
	for _, c := range m.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateHold(_ context.Context, h *model.Hold) ([]string, error) {
	cells := h.Cells()
	m.mu.Lock()
	defer m.mu.Unlock()
	var blocked []string
	for _, id := range cells {
		if _, taken := m.cells[id]; taken {
			blocked = append(blocked, id)
		}
	}
	if len(blocked) > 0 {
		return blocked, nil
	}
	for _, id := range cells {
		m.cells[id] = model.Cell{ID: id, State: model.CellHeld, HoldID: h.ID}
	}
	cp := *h
	m.holds[h.ID] = &cp
	if h.CheckoutRef != "" {
		m.byCheckout[h.CheckoutRef] = h.ID
	}
	return nil, nil
}

func (m *Memory) HoldByID(_ context.Context, holdID string) (*model.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return nil, ErrHoldNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *Memory) HoldByCheckoutRef(_ context.Context, ref string) (*model.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCheckout[ref]
	if !ok {
		return nil, ErrHoldNotFound
	}
	cp := *m.holds[id]
	return &cp, nil
}

func (m *Memory) AttachCheckoutRef(_ context.Context, holdID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return ErrHoldNotFound
	}
	if h.CheckoutRef != "" {
		delete(m.byCheckout, h.CheckoutRef)
	}
	h.CheckoutRef = ref
	m.byCheckout[ref] = holdID
	return nil
}

func (m *Memory) CancelHold(_ context.Context, holdID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return nil, nil
	}
	released := m.releaseLocked(h)
	m.deleteHoldLocked(h)
	return released, nil
}

func (m *Memory) ReapExpired(_ context.Context, now time.Time, limit int) ([]*model.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reaped []*model.Hold
	for _, h := range m.holds {
		if !h.Expired(now) {
			continue
		}
		m.releaseLocked(h)
		m.deleteHoldLocked(h)
		cp := *h
		reaped = append(reaped, &cp)
		if limit > 0 && len(reaped) >= limit {
			break
		}
	}
	return reaped, nil
}

func (m *Memory) ConvertHold(_ context.Context, holdID string, sub *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byPayment[sub.PaymentRef]; dup {
		return ErrAlreadyReconciled
	}
	h, ok := m.holds[holdID]
	if !ok {
		return ErrStaleHold
	}
	cells := h.Cells()
	for _, id := range cells {
		c, ok := m.cells[id]
		if !ok || c.State != model.CellHeld || c.HoldID != holdID {
			return ErrStaleHold
		}
	}
	for _, id := range cells {
		m.cells[id] = model.Cell{ID: id, State: model.CellOccupied, SubmissionID: sub.ID}
	}
	cp := *sub
	m.subs[sub.ID] = &cp
	m.byPayment[sub.PaymentRef] = sub.ID
	m.deleteHoldLocked(h)
	return nil
}

func (m *Memory) SubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) SubmissionByPaymentRef(_ context.Context, ref string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPayment[ref]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	cp := *m.subs[id]
	return &cp, nil
}

func (m *Memory) SubmissionByCell(_ context.Context, cellID string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cells[cellID]
	if !ok || c.State != model.CellOccupied {
		return nil, ErrSubmissionNotFound
	}
	s, ok := m.subs[c.SubmissionID]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ListSubmissions(_ context.Context, status model.SubmissionStatus) ([]*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Submission
	for _, s := range m.subs {
		if status != "" && s.Status != status {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SetSubmissionContent(_ context.Context, id, contentRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return ErrSubmissionNotFound
	}
	s.ContentRef = contentRef
	if s.Status == model.StatusAwaitingUpload {
		s.Status = model.StatusUnderReview
	}
	return nil
}

func (m *Memory) ApproveSubmission(_ context.Context, id, notes string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	now := time.Now().UTC()
	s.Status = model.StatusApproved
	s.AdminNotes = notes
	s.ApprovedAt = &now
	cp := *s
	return &cp, nil
}

func (m *Memory) CloseSubmission(_ context.Context, id string, status model.SubmissionStatus, notes string) (*model.Submission, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, nil, ErrSubmissionNotFound
	}
	now := time.Now().UTC()
	s.Status = status
	s.AdminNotes = notes
	if status == model.StatusRejected {
		s.RejectedAt = &now
	}
	var vacated []string
	for _, cid := range s.Cells() {
		if c, ok := m.cells[cid]; ok && c.State == model.CellOccupied && c.SubmissionID == id {
			delete(m.cells, cid)
			vacated = append(vacated, cid)
		}
	}
	cp := *s
	return &cp, vacated, nil
}

// releaseLocked frees the cells still held by h.  Cells that moved on, e.g.
// into occupancy, are left untouched.
func (m *Memory) releaseLocked(h *model.Hold) []string {
	var released []string
	for _, id := range h.Cells() {
		if c, ok := m.cells[id]; ok && c.State == model.CellHeld && c.HoldID == h.ID {
			delete(m.cells, id)
			released = append(released, id)
		}
	}
	return released
}

func (m *Memory) deleteHoldLocked(h *model.Hold) {
	delete(m.holds, h.ID)
	if h.CheckoutRef != "" {
		delete(m.byCheckout, h.CheckoutRef)
	}
}
