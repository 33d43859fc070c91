package model

import (
	"time"

	"github.com/cellboard/cellboard/internal/grid"
)

// Hold is a time-boxed exclusive claim over the cells of one rectangle,
// pending payment.  The claimed cell set is exactly the row-major expansion
// of Rect, so it is never stored separately.  A hold is destroyed by
// cancellation, expiry reaping, or conversion into a Submission; it never
// outlives its cells' HELD state.
//
// CheckoutRef is empty until an external checkout has been created for the
// hold.  It is the key the payment confirmation webhook is reconciled by.
type Hold struct {
	ID          string    `json:"id"`
	Contact     string    `json:"contact"`
	Rect        grid.Rect `json:"rect"`
	AmountCents uint64    `json:"amount_cents"`
	CheckoutRef string    `json:"checkout_ref,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Cells returns the hold's claimed cell-id set in row-major order.
func (h *Hold) Cells() []string {
	ids, err := h.Rect.Cells()
	if err != nil {
		// Holds are only ever created from validated rectangles.
		return nil
	}
	return ids
}

// Expired reports whether the hold's TTL has passed at the given instant.
func (h *Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
