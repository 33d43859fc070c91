// Package worker runs the background jobs: the minutely hold-expiry sweep
// and refund retries.  Jobs are asynq tasks over Redis, so sweeps survive
// process restarts and refund retries get exponential backoff for free.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cellboard/cellboard/internal/engine"
	"github.com/cellboard/cellboard/internal/payment"
)

const (
	TypeReapHolds     = "holds:reap"
	TypeRefundRequest = "refund:request"
)

// RefundPayload identifies the payment to refund.
type RefundPayload struct {
	PaymentRef string `json:"payment_ref"`
}

// Client enqueues tasks.  It implements engine.RefundScheduler.
type Client struct {
	inner *asynq.Client
}

// NewClient builds a task client over the given Redis connection.
func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{inner: asynq.NewClient(redisOpt)}
}

// ScheduleRefund enqueues a refund:request task.  asynq retries it with
// backoff until the provider accepts, up to the max retry count.
func (c *Client) ScheduleRefund(ctx context.Context, paymentRef string) error {
	payload, err := json.Marshal(RefundPayload{PaymentRef: paymentRef})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeRefundRequest, payload, asynq.MaxRetry(10), asynq.Timeout(30*time.Second))
	_, err = c.inner.EnqueueContext(ctx, task)
	return err
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.inner.Close() }

// Handlers processes worker tasks.
type Handlers struct {
	engine   *engine.Engine
	refunder payment.Refunder
	log      *slog.Logger
}

// NewHandlers wires the task handlers.
func NewHandlers(eng *engine.Engine, refunder payment.Refunder, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{engine: eng, refunder: refunder, log: logger}
}

// HandleReapHolds sweeps expired holds.  The sweep is idempotent, so an
// overlapping run from a second worker instance is harmless.
func (h *Handlers) HandleReapHolds(ctx context.Context, _ *asynq.Task) error {
	n, err := h.engine.ReapExpired(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reap expired holds: %w", err)
	}
	if n > 0 {
		h.log.Info("reaped expired holds", "count", n)
	}
	return nil
}

// HandleRefundRequest retries a refund.  Returning the error hands retry
// scheduling back to asynq.
func (h *Handlers) HandleRefundRequest(ctx context.Context, t *asynq.Task) error {
	var payload RefundPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	if err := h.refunder.Refund(ctx, payload.PaymentRef); err != nil {
		return fmt.Errorf("refund %s: %w", payload.PaymentRef, err)
	}
	h.log.Info("refund completed", "payment_ref", payload.PaymentRef)
	return nil
}

// Run starts the asynq server and the scheduler that enqueues the reap
// sweep every minute.  It blocks; call it from its own goroutine.
func Run(redisOpt asynq.RedisClientOpt, handlers *Handlers) {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReapHolds, handlers.HandleReapHolds)
	mux.HandleFunc(TypeRefundRequest, handlers.HandleRefundRequest)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("* * * * *", asynq.NewTask(TypeReapHolds, nil)); err != nil {
		log.Fatal("worker: register reap schedule:", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatal("worker: scheduler failed to start:", err)
		}
	}()

	if err := srv.Run(mux); err != nil {
		log.Fatal("worker: server failed to start:", err)
	}
}
