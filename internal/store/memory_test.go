package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellboard/cellboard/internal/grid"
	"github.com/cellboard/cellboard/internal/model"
)

func testHold(id string, r grid.Rect, expiresAt time.Time) *model.Hold {
	return &model.Hold{
		ID:          id,
		Contact:     "buyer@example.com",
		Rect:        r,
		AmountCents: 100,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}
}

func rect(tr, tc, br, bc int) grid.Rect {
	return grid.Rect{TopLeft: grid.Point{Row: tr, Col: tc}, BottomRight: grid.Point{Row: br, Col: bc}}
}

func TestCreateHoldClaimsAllCells(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	h := testHold("h1", rect(0, 0, 1, 1), time.Now().Add(time.Minute))
	blocked, err := m.CreateHold(ctx, h)
	require.NoError(t, err)
	assert.Empty(t, blocked)

	states, err := m.GetStates(ctx, h.Cells())
	require.NoError(t, err)
	for _, id := range h.Cells() {
		assert.Equal(t, model.CellHeld, states[id])
	}
}

func TestCreateHoldConflictMutatesNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := testHold("h1", rect(1, 1, 1, 1), time.Now().Add(time.Minute))
	_, err := m.CreateHold(ctx, first)
	require.NoError(t, err)

	second := testHold("h2", rect(0, 0, 2, 2), time.Now().Add(time.Minute))
	blocked, err := m.CreateHold(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"1-1"}, blocked)

	// Losing claim left no partial allocation behind.
	states, err := m.GetStates(ctx, second.Cells())
	require.NoError(t, err)
	for _, id := range second.Cells() {
		if id == "1-1" {
			assert.Equal(t, model.CellHeld, states[id])
			continue
		}
		assert.Equal(t, model.CellFree, states[id])
	}
	_, err = m.HoldByID(ctx, "h2")
	assert.ErrorIs(t, err, ErrHoldNotFound)
}

func TestCancelHoldFreesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	h := testHold("h1", rect(0, 0, 0, 2), time.Now().Add(time.Minute))
	_, err := m.CreateHold(ctx, h)
	require.NoError(t, err)

	released, err := m.CancelHold(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, released, 3)

	released, err = m.CancelHold(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, released)

	states, err := m.GetStates(ctx, h.Cells())
	require.NoError(t, err)
	for _, id := range h.Cells() {
		assert.Equal(t, model.CellFree, states[id])
	}
}

func TestReapExpiredSkipsLiveHolds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	expired := testHold("old", rect(0, 0, 0, 0), now.Add(-time.Minute))
	live := testHold("new", rect(5, 5, 5, 5), now.Add(time.Minute))
	_, err := m.CreateHold(ctx, expired)
	require.NoError(t, err)
	_, err = m.CreateHold(ctx, live)
	require.NoError(t, err)

	reaped, err := m.ReapExpired(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	assert.Equal(t, "old", reaped[0].ID)

	_, err = m.HoldByID(ctx, "new")
	assert.NoError(t, err)

	// Second sweep finds nothing.
	reaped, err = m.ReapExpired(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, reaped)
}

func TestConvertHoldIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	h := testHold("h1", rect(0, 0, 0, 1), time.Now().Add(time.Minute))
	_, err := m.CreateHold(ctx, h)
	require.NoError(t, err)

	sub := &model.Submission{
		ID:         "s1",
		Contact:    h.Contact,
		Rect:       h.Rect,
		PaymentRef: "pay-1",
		Status:     model.StatusAwaitingUpload,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, m.ConvertHold(ctx, "h1", sub))

	states, err := m.GetStates(ctx, h.Cells())
	require.NoError(t, err)
	for _, id := range h.Cells() {
		assert.Equal(t, model.CellOccupied, states[id])
	}

	// Same payment ref again: already reconciled.
	dup := *sub
	dup.ID = "s2"
	assert.ErrorIs(t, m.ConvertHold(ctx, "h1", &dup), ErrAlreadyReconciled)

	// Different payment ref but the hold is gone: stale.
	other := *sub
	other.ID = "s3"
	other.PaymentRef = "pay-2"
	assert.ErrorIs(t, m.ConvertHold(ctx, "h1", &other), ErrStaleHold)
}

func TestCloseSubmissionVacatesCells(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	h := testHold("h1", rect(3, 3, 4, 4), time.Now().Add(time.Minute))
	_, err := m.CreateHold(ctx, h)
	require.NoError(t, err)
	sub := &model.Submission{ID: "s1", Rect: h.Rect, PaymentRef: "pay-1", Status: model.StatusUnderReview, CreatedAt: time.Now().UTC()}
	require.NoError(t, m.ConvertHold(ctx, "h1", sub))

	closed, vacated, err := m.CloseSubmission(ctx, "s1", model.StatusRejected, "off-topic")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, closed.Status)
	assert.Equal(t, "off-topic", closed.AdminNotes)
	assert.NotNil(t, closed.RejectedAt)
	assert.Len(t, vacated, 4)

	states, err := m.GetStates(ctx, sub.Cells())
	require.NoError(t, err)
	for _, id := range sub.Cells() {
		assert.Equal(t, model.CellFree, states[id])
	}
}

func TestSubmissionByCell(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	h := testHold("h1", rect(7, 7, 7, 7), time.Now().Add(time.Minute))
	_, err := m.CreateHold(ctx, h)
	require.NoError(t, err)

	// Held cell resolves to nothing yet.
	_, err = m.SubmissionByCell(ctx, "7-7")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	sub := &model.Submission{ID: "s1", Rect: h.Rect, PaymentRef: "pay-1", Status: model.StatusUnderReview, CreatedAt: time.Now().UTC()}
	require.NoError(t, m.ConvertHold(ctx, "h1", sub))

	got, err := m.SubmissionByCell(ctx, "7-7")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	_, err = m.SubmissionByCell(ctx, "8-8")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestSnapshotListsOnlyNonFree(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	h := testHold("h1", rect(0, 0, 0, 1), time.Now().Add(time.Minute))
	_, err := m.CreateHold(ctx, h)
	require.NoError(t, err)

	cells, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, "0-0", cells[0].ID)
	assert.Equal(t, model.CellHeld, cells[0].State)
	assert.Equal(t, "h1", cells[0].HoldID)
}
