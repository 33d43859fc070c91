package feed

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes delta envelopes to Kafka through a buffered inbox
// so request handlers never block on the broker.  All messages share one
// partition key, which keeps deltas globally ordered for consumers.
type KafkaPublisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
}

// NewKafkaPublisher builds a publisher for the cell-state topic.  Start
// must be called before the first publish.
func NewKafkaPublisher(brokers []string, buf int) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        TopicCellState,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is cancelled, flushing any queued
// messages before closing the writer.
func (p *KafkaPublisher) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						_ = p.w.Close()
						return
					}
				}
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *KafkaPublisher) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		log.Printf("feed: kafka write failed: %v", err)
	}
}

// PublishCellDeltas enqueues one envelope for the batch.  When the inbox is
// full the batch is dropped with a log line; consumers repair from the next
// snapshot.
func (p *KafkaPublisher) PublishCellDeltas(_ context.Context, deltas []CellDelta) {
	if len(deltas) == 0 {
		return
	}
	env, err := NewCellStateEnvelope(deltas)
	if err != nil {
		log.Printf("feed: marshal envelope failed: %v", err)
		return
	}
	body, err := json.Marshal(env)
	if err != nil {
		log.Printf("feed: marshal envelope failed: %v", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(TopicCellState), // single key keeps global delta order
		Value: body,
		Time:  time.Now(),
	}
	select {
	case p.inbox <- msg:
	default:
		log.Printf("feed: inbox full, dropping %d deltas", len(deltas))
	}
}

// WaitClosed blocks until the writer loop has flushed and exited.
func (p *KafkaPublisher) WaitClosed() { <-p.closeCh }
