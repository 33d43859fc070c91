package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellboard/cellboard/internal/grid"
	"github.com/cellboard/cellboard/internal/model"
)

func rect(tr, tc, br, bc int) grid.Rect {
	return grid.Rect{TopLeft: grid.Point{Row: tr, Col: tc}, BottomRight: grid.Point{Row: br, Col: bc}}
}

func TestCreateHoldPricesAndExpires(t *testing.T) {
	rig := newTestRig(Options{HoldTTL: 10 * time.Minute, PerCellCents: 50})
	before := time.Now().UTC()

	h, err := rig.engine.CreateHold(context.Background(), rect(0, 0, 1, 2), "buyer@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, uint64(300), h.AmountCents) // 6 cells at 50
	assert.True(t, h.ExpiresAt.After(before.Add(9*time.Minute)))
}

func TestCreateHoldRejectsInvalidRectangle(t *testing.T) {
	rig := newTestRig(Options{})
	_, err := rig.engine.CreateHold(context.Background(), rect(0, 0, grid.Rows, 0), "buyer@example.com")
	assert.ErrorIs(t, err, grid.ErrInvalidRectangle)
}

func TestCreateHoldConflictReportsBlockedCells(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(Options{})

	_, err := rig.engine.CreateHold(ctx, rect(1, 1, 1, 1), "first@example.com")
	require.NoError(t, err)

	_, err = rig.engine.CreateHold(ctx, rect(0, 0, 2, 2), "second@example.com")
	var unavailable *SlotUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"1-1"}, unavailable.Blocked)
}

func TestConcurrentOverlappingClaimsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(Options{})

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every rectangle covers (2,2), so at most one claim can win.
			_, err := rig.engine.CreateHold(ctx, rect(2, 2, 2+i%3, 2+i%2), "racer@example.com")
			results[i] = err
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		var unavailable *SlotUnavailableError
		assert.ErrorAs(t, err, &unavailable)
	}
	assert.Equal(t, 1, wins)
}

func TestCancelHoldRoundTrip(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(Options{})

	h, err := rig.engine.CreateHold(ctx, rect(0, 0, 1, 1), "buyer@example.com")
	require.NoError(t, err)
	require.NoError(t, rig.engine.CancelHold(ctx, h.ID))

	states, err := rig.store.GetStates(ctx, h.Cells())
	require.NoError(t, err)
	for _, id := range h.Cells() {
		assert.Equal(t, model.CellFree, states[id])
	}

	// Cancelling again is harmless.
	require.NoError(t, rig.engine.CancelHold(ctx, h.ID))
}

func TestReapExpiredFreesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(Options{HoldTTL: time.Minute})

	h, err := rig.engine.CreateHold(ctx, rect(4, 4, 5, 5), "buyer@example.com")
	require.NoError(t, err)

	later := time.Now().UTC().Add(2 * time.Minute)
	n, err := rig.engine.ReapExpired(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	states, err := rig.store.GetStates(ctx, h.Cells())
	require.NoError(t, err)
	for _, id := range h.Cells() {
		assert.Equal(t, model.CellFree, states[id])
	}

	n, err = rig.engine.ReapExpired(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReapSweepsInBatches(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(Options{HoldTTL: time.Minute, ReapBatchSize: 2})

	for i := 0; i < 5; i++ {
		_, err := rig.engine.CreateHold(ctx, rect(i, 0, i, 0), "buyer@example.com")
		require.NoError(t, err)
	}

	n, err := rig.engine.ReapExpired(ctx, time.Now().UTC().Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestQuoteMatchesChargedAmount(t *testing.T) {
	rig := newTestRig(Options{PerCellCents: 25})

	count, amount, err := rig.engine.Quote(rect(0, 0, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 9, count)
	assert.Equal(t, uint64(225), amount)

	h, err := rig.engine.CreateHold(context.Background(), rect(0, 0, 2, 2), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, amount, h.AmountCents)
}
