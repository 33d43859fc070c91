package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/cellboard/cellboard/internal/feed"
	"github.com/cellboard/cellboard/internal/payment"
	"github.com/cellboard/cellboard/internal/queue"
	"github.com/cellboard/cellboard/internal/store"
)

// fakeProvider stands in for the payment collaborator.
type fakeProvider struct {
	mu        sync.Mutex
	charges   []string
	refunds   []string
	refundErr error
}

func (f *fakeProvider) CreateCharge(_ context.Context, holdID string, _ uint64, _, _ string) (payment.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := "co-" + holdID
	f.charges = append(f.charges, ref)
	return payment.Checkout{Ref: ref, URL: "https://pay.example/" + ref}, nil
}

func (f *fakeProvider) Refund(_ context.Context, paymentRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refunds = append(f.refunds, paymentRef)
	return nil
}

func (f *fakeProvider) refundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refunds)
}

// captureFeed records every published delta.
type captureFeed struct {
	mu     sync.Mutex
	deltas []feed.CellDelta
}

func (c *captureFeed) PublishCellDeltas(_ context.Context, ds []feed.CellDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deltas = append(c.deltas, ds...)
}

// captureEvents records purchase events.
type captureEvents struct {
	mu     sync.Mutex
	events []queue.PurchaseConfirmedEvent
}

func (c *captureEvents) PublishPurchaseConfirmed(_ context.Context, ev queue.PurchaseConfirmedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureEvents) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// captureScheduler records refund retry requests.
type captureScheduler struct {
	mu   sync.Mutex
	refs []string
}

func (c *captureScheduler) ScheduleRefund(_ context.Context, paymentRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs = append(c.refs, paymentRef)
	return nil
}

var errProviderDown = errors.New("provider down")

type testRig struct {
	engine    *Engine
	store     *store.Memory
	provider  *fakeProvider
	feed      *captureFeed
	events    *captureEvents
	scheduler *captureScheduler
}

func newTestRig(opts Options) *testRig {
	r := &testRig{
		store:     store.NewMemory(),
		provider:  &fakeProvider{},
		feed:      &captureFeed{},
		events:    &captureEvents{},
		scheduler: &captureScheduler{},
	}
	if opts.PerCellCents == 0 {
		opts.PerCellCents = 100
	}
	opts.Charger = r.provider
	opts.Refunder = r.provider
	opts.Feed = r.feed
	opts.Events = r.events
	opts.RefundRetries = r.scheduler
	r.engine = New(r.store, opts)
	return r
}
