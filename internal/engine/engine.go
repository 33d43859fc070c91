// Package engine implements the hold lifecycle and payment reconciliation
// over a store.Store.  The engine itself is stateless; every instance of
// the server can run one against the same durable store.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cellboard/cellboard/internal/feed"
	"github.com/cellboard/cellboard/internal/grid"
	"github.com/cellboard/cellboard/internal/model"
	"github.com/cellboard/cellboard/internal/payment"
	"github.com/cellboard/cellboard/internal/queue"
	"github.com/cellboard/cellboard/internal/store"
)

// EventPublisher delivers purchase events to the message broker.  Failures
// are logged, never propagated: a lost event costs a journal line, not a
// purchase.
type EventPublisher interface {
	PublishPurchaseConfirmed(ctx context.Context, ev queue.PurchaseConfirmedEvent) error
}

// RefundScheduler enqueues a refund for later retry when the synchronous
// attempt fails.
type RefundScheduler interface {
	ScheduleRefund(ctx context.Context, paymentRef string) error
}

// Options carries the engine's tunables and collaborators.  Feed, Events
// and Refunds may be nil; the engine degrades to not publishing and not
// retrying.
type Options struct {
	HoldTTL       time.Duration
	PerCellCents  uint64
	Currency      string
	Charger       payment.Charger
	Refunder      payment.Refunder
	Feed          feed.Publisher
	Events        EventPublisher
	RefundRetries RefundScheduler
	Logger        *slog.Logger
	ReapBatchSize int
}

// Engine is the grid reservation and occupancy engine.
type Engine struct {
	store     store.Store
	ttl       time.Duration
	perCell   uint64
	currency  string
	charger   payment.Charger
	refunder  payment.Refunder
	feed      feed.Publisher
	events    EventPublisher
	retries   RefundScheduler
	log       *slog.Logger
	reapBatch int
}

// New builds an engine over the given store.
func New(s store.Store, opts Options) *Engine {
	e := &Engine{
		store:     s,
		ttl:       opts.HoldTTL,
		perCell:   opts.PerCellCents,
		currency:  opts.Currency,
		charger:   opts.Charger,
		refunder:  opts.Refunder,
		feed:      opts.Feed,
		events:    opts.Events,
		retries:   opts.RefundRetries,
		log:       opts.Logger,
		reapBatch: opts.ReapBatchSize,
	}
	if e.ttl <= 0 {
		e.ttl = 15 * time.Minute
	}
	if e.currency == "" {
		e.currency = "USD"
	}
	if e.feed == nil {
		e.feed = feed.Nop{}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.reapBatch <= 0 {
		e.reapBatch = 500
	}
	return e
}

// Quote returns the cell count and authoritative price for a rectangle.
func (e *Engine) Quote(rect grid.Rect) (int, uint64, error) {
	if err := rect.Validate(); err != nil {
		return 0, 0, err
	}
	n := rect.Area()
	return n, PriceForCells(n, e.perCell), nil
}

// CreateHold claims every cell of rect for contact.  The cell claim and the
// hold record are one atomic store operation; on conflict the blocking
// cells are reported via SlotUnavailableError and nothing changes.  First
// successful claim wins; there is no partial allocation.
func (e *Engine) CreateHold(ctx context.Context, rect grid.Rect, contact string) (*model.Hold, error) {
	if err := rect.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	h := &model.Hold{
		ID:          uuid.NewString(),
		Contact:     contact,
		Rect:        rect,
		AmountCents: PriceForCells(rect.Area(), e.perCell),
		ExpiresAt:   now.Add(e.ttl),
		CreatedAt:   now,
	}
	blocked, err := e.store.CreateHold(ctx, h)
	if err != nil {
		return nil, err
	}
	if len(blocked) > 0 {
		return nil, &SlotUnavailableError{Blocked: blocked}
	}
	e.publishDeltas(ctx, h.Cells(), model.CellHeld)
	return h, nil
}

// CancelHold frees the hold's cells and deletes the record.  Safe on an
// already-expired or already-converted hold.
func (e *Engine) CancelHold(ctx context.Context, holdID string) error {
	released, err := e.store.CancelHold(ctx, holdID)
	if err != nil {
		return err
	}
	e.publishDeltas(ctx, released, model.CellFree)
	return nil
}

// ReapExpired sweeps expired holds in batches until none remain, freeing
// their cells.  Running it twice, or concurrently with itself, is safe:
// releasing cells that are already free is a no-op and a hold converted
// mid-sweep is simply not found anymore.
func (e *Engine) ReapExpired(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		reaped, err := e.store.ReapExpired(ctx, now, e.reapBatch)
		if err != nil {
			return total, err
		}
		for _, h := range reaped {
			e.publishDeltas(ctx, h.Cells(), model.CellFree)
		}
		total += len(reaped)
		if len(reaped) < e.reapBatch {
			return total, nil
		}
	}
}

// StartCheckout creates an external charge for the hold and records the
// checkout reference the confirmation webhook will later be keyed by.
func (e *Engine) StartCheckout(ctx context.Context, holdID string) (payment.Checkout, error) {
	h, err := e.store.HoldByID(ctx, holdID)
	if err != nil {
		return payment.Checkout{}, err
	}
	co, err := e.charger.CreateCharge(ctx, h.ID, h.AmountCents, e.currency, h.Contact)
	if err != nil {
		return payment.Checkout{}, err
	}
	if err := e.store.AttachCheckoutRef(ctx, h.ID, co.Ref); err != nil {
		return payment.Checkout{}, err
	}
	return co, nil
}

// OnPaymentConfirmed converts the hold carrying the checkout reference into
// a submission and permanent occupancy, exactly once.  Delivery is
// at-least-once and may arrive after the hold was cancelled or reaped;
// every already-handled shape (missing hold, duplicate payment reference,
// stale cells) is swallowed so retries are harmless.
func (e *Engine) OnPaymentConfirmed(ctx context.Context, checkoutRef string) error {
	h, err := e.store.HoldByCheckoutRef(ctx, checkoutRef)
	if err != nil {
		if errors.Is(err, store.ErrHoldNotFound) {
			e.log.Info("payment confirmation for unknown hold, treating as handled", "checkout_ref", checkoutRef)
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	sub := &model.Submission{
		ID:          uuid.NewString(),
		Contact:     h.Contact,
		Rect:        h.Rect,
		AmountCents: h.AmountCents,
		Currency:    e.currency,
		PaymentRef:  checkoutRef,
		Status:      model.StatusAwaitingUpload,
		CreatedAt:   now,
	}
	if err := e.store.ConvertHold(ctx, h.ID, sub); err != nil {
		if errors.Is(err, store.ErrAlreadyReconciled) || errors.Is(err, store.ErrStaleHold) {
			e.log.Info("payment confirmation already handled", "checkout_ref", checkoutRef, "reason", err)
			return nil
		}
		return err
	}
	e.publishDeltas(ctx, sub.Cells(), model.CellOccupied)
	e.publishPurchase(ctx, h, sub, now)
	return nil
}

// AttachContent stores the uploaded content reference on a submission and
// moves it into review.
func (e *Engine) AttachContent(ctx context.Context, submissionID, contentRef string) error {
	return e.store.SetSubmissionContent(ctx, submissionID, contentRef)
}

// Approve marks a submission approved.  Cells were already occupied at
// payment confirmation; approval only gates content display.
func (e *Engine) Approve(ctx context.Context, submissionID, notes string) (*model.Submission, error) {
	return e.store.ApproveSubmission(ctx, submissionID, notes)
}

// Reject marks a submission rejected, frees its cells and requests a
// refund.  The refund is best-effort: a provider failure is logged and
// handed to the retry scheduler, never blocking the state transition.
func (e *Engine) Reject(ctx context.Context, submissionID, notes string) (*model.Submission, error) {
	sub, vacated, err := e.store.CloseSubmission(ctx, submissionID, model.StatusRejected, notes)
	if err != nil {
		return nil, err
	}
	e.publishDeltas(ctx, vacated, model.CellFree)
	if e.refunder != nil {
		if err := e.refunder.Refund(ctx, sub.PaymentRef); err != nil {
			e.log.Error("refund request failed", "payment_ref", sub.PaymentRef, "err", err)
			if e.retries != nil {
				if qerr := e.retries.ScheduleRefund(ctx, sub.PaymentRef); qerr != nil {
					e.log.Error("refund retry enqueue failed", "payment_ref", sub.PaymentRef, "err", qerr)
				}
			}
		}
	}
	return sub, nil
}

// Remove marks a submission removed and frees its cells.  Unlike Reject it
// does not trigger a refund.
func (e *Engine) Remove(ctx context.Context, submissionID, notes string) (*model.Submission, error) {
	sub, vacated, err := e.store.CloseSubmission(ctx, submissionID, model.StatusRemoved, notes)
	if err != nil {
		return nil, err
	}
	e.publishDeltas(ctx, vacated, model.CellFree)
	return sub, nil
}

func (e *Engine) publishDeltas(ctx context.Context, cellIDs []string, state model.CellState) {
	if len(cellIDs) == 0 {
		return
	}
	deltas := make([]feed.CellDelta, 0, len(cellIDs))
	for _, id := range cellIDs {
		deltas = append(deltas, feed.CellDelta{CellID: id, State: state})
	}
	e.feed.PublishCellDeltas(ctx, deltas)
}

func (e *Engine) publishPurchase(ctx context.Context, h *model.Hold, sub *model.Submission, at time.Time) {
	if e.events == nil {
		return
	}
	ev := queue.PurchaseConfirmedEvent{
		SubmissionID: sub.ID,
		HoldID:       h.ID,
		Contact:      sub.Contact,
		PaymentRef:   sub.PaymentRef,
		TopRow:       sub.Rect.TopLeft.Row,
		TopCol:       sub.Rect.TopLeft.Col,
		BottomRow:    sub.Rect.BottomRight.Row,
		BottomCol:    sub.Rect.BottomRight.Col,
		CellCount:    sub.Rect.Area(),
		AmountCents:  sub.AmountCents,
		Currency:     sub.Currency,
		ConfirmedAt:  at.Format(time.RFC3339),
	}
	if err := e.events.PublishPurchaseConfirmed(ctx, ev); err != nil {
		e.log.Error("publish purchase event failed", "submission_id", sub.ID, "err", err)
	}
}
