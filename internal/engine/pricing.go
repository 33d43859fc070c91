package engine

// PriceForCells is the one authoritative pricing function: a flat per-cell
// price applied to the slot count.  Clients may call the quote endpoint to
// display it, but the amount actually charged is always computed here on
// the server.  Amounts are 64-bit: a full-board rectangle is a million
// cells, which overflows 32-bit cents at ordinary per-cell prices.
func PriceForCells(cellCount int, perCellCents uint64) uint64 {
	if cellCount <= 0 {
		return 0
	}
	return uint64(cellCount) * perCellCents
}
