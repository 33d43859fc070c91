package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellboard/cellboard/internal/grid"
)

func TestPriceForCells(t *testing.T) {
	assert.Equal(t, uint64(0), PriceForCells(0, 100))
	assert.Equal(t, uint64(0), PriceForCells(-3, 100))
	assert.Equal(t, uint64(100), PriceForCells(1, 100))
	assert.Equal(t, uint64(900), PriceForCells(9, 100))
}

func TestPriceForFullBoardDoesNotWrap(t *testing.T) {
	// A full-board rectangle is a million cells; the amount must hold
	// prices that would overflow 32-bit cents.
	full := grid.Rect{
		TopLeft:     grid.Point{Row: 0, Col: 0},
		BottomRight: grid.Point{Row: grid.Rows - 1, Col: grid.Cols - 1},
	}
	require.Equal(t, 1_000_000, full.Area())
	assert.Equal(t, uint64(5_000_000_000), PriceForCells(full.Area(), 5000))
	assert.Equal(t, uint64(4_295_000_000), PriceForCells(full.Area(), 4295))
}

func TestQuoteFullBoard(t *testing.T) {
	rig := newTestRig(Options{PerCellCents: 5000})
	full := grid.Rect{
		TopLeft:     grid.Point{Row: 0, Col: 0},
		BottomRight: grid.Point{Row: grid.Rows - 1, Col: grid.Cols - 1},
	}
	count, amount, err := rig.engine.Quote(full)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000, count)
	assert.Equal(t, uint64(5_000_000_000), amount)
}
