// Package store defines the persistence contract for the reservation
// engine.  Every method that mutates more than one cell is atomic: all
// cells in the call succeed or none do, and no reader ever observes a
// rectangle half-claimed or half-freed.  Two implementations exist: the
// MySQL-backed one in internal/repository and the mutex-guarded in-memory
// one in this package.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cellboard/cellboard/internal/model"
)

// ErrHoldNotFound is returned when a hold id or checkout reference names no
// live hold.  For payment reconciliation this is the idempotency guard: the
// hold was already converted, already reaped, or never existed, and the
// event is treated as handled.
var ErrHoldNotFound = errors.New("hold not found")

// ErrStaleHold is returned by ConvertHold when the hold's cells are no
// longer held by it.  It guards against double-processing of a payment
// event racing a reap or cancellation.
var ErrStaleHold = errors.New("stale hold")

// ErrAlreadyReconciled is returned by ConvertHold when a submission already
// exists for the payment reference.  Callers treat it as success.
var ErrAlreadyReconciled = errors.New("payment reference already reconciled")

// ErrSubmissionNotFound is returned when a submission id or payment
// reference matches no record.
var ErrSubmissionNotFound = errors.New("submission not found")

// Store is the single shared mutable resource of the system.
type Store interface {
	// GetStates returns a snapshot of the given cells' states.  Cells
	// without a record are FREE.
	GetStates(ctx context.Context, cellIDs []string) (map[string]model.CellState, error)

	// Snapshot returns every non-free cell.  It backs the replayable
	// full-snapshot feed the viewport bootstraps from.
	Snapshot(ctx context.Context) ([]model.Cell, error)

	// CreateHold atomically claims every cell of h.Rect and persists the
	// hold record.  If any requested cell is not FREE, no state changes
	// and the blocking cell ids are returned.
	CreateHold(ctx context.Context, h *model.Hold) (blocked []string, err error)

	// HoldByID returns a live hold or ErrHoldNotFound.
	HoldByID(ctx context.Context, holdID string) (*model.Hold, error)

	// HoldByCheckoutRef returns the live hold carrying the checkout
	// reference, or ErrHoldNotFound.
	HoldByCheckoutRef(ctx context.Context, ref string) (*model.Hold, error)

	// AttachCheckoutRef records the external checkout session on a hold.
	AttachCheckoutRef(ctx context.Context, holdID, ref string) error

	// CancelHold deletes the hold record and frees the cells still held
	// by it, as one atomic step.  Cancelling an unknown or already
	// converted hold is a no-op; the freed cell ids are returned.
	CancelHold(ctx context.Context, holdID string) (released []string, err error)

	// ReapExpired deletes up to limit holds with expiresAt <= now,
	// freeing their cells.  Safe to run concurrently with itself and
	// with hold creation or conversion; releasing already-free cells is
	// a no-op.
	ReapExpired(ctx context.Context, now time.Time, limit int) (reaped []*model.Hold, err error)

	// ConvertHold performs the hold -> submission transition as one
	// atomic step: insert the submission, flip the hold's cells from
	// HELD to OCCUPIED referencing it, and delete the hold record.  It
	// returns ErrAlreadyReconciled when sub.PaymentRef already has a
	// submission and ErrStaleHold when the cells are no longer held by
	// holdID; in both cases nothing changes.
	ConvertHold(ctx context.Context, holdID string, sub *model.Submission) error

	// SubmissionByID returns a submission or ErrSubmissionNotFound.
	SubmissionByID(ctx context.Context, id string) (*model.Submission, error)

	// SubmissionByPaymentRef returns the submission created for an
	// external payment reference, or ErrSubmissionNotFound.
	SubmissionByPaymentRef(ctx context.Context, ref string) (*model.Submission, error)

	// SubmissionByCell returns the submission occupying a cell, or
	// ErrSubmissionNotFound when the cell is free or merely held.
	SubmissionByCell(ctx context.Context, cellID string) (*model.Submission, error)

	// ListSubmissions returns submissions, optionally filtered by
	// status (empty status means all), newest first.
	ListSubmissions(ctx context.Context, status model.SubmissionStatus) ([]*model.Submission, error)

	// SetSubmissionContent stores the durable content reference and
	// moves AWAITING_UPLOAD to UNDER_REVIEW.
	SetSubmissionContent(ctx context.Context, id, contentRef string) error

	// ApproveSubmission moves a submission to APPROVED with notes.
	ApproveSubmission(ctx context.Context, id, notes string) (*model.Submission, error)

	// CloseSubmission moves a submission to REJECTED or REMOVED and
	// vacates its occupied cells, as one atomic step.  The vacated cell
	// ids are returned.
	CloseSubmission(ctx context.Context, id string, status model.SubmissionStatus, notes string) (*model.Submission, []string, error)
}
