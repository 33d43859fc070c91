// Package feed publishes cell-state deltas to the message bus so viewers
// can keep their local grid snapshots in sync.  Consumers bootstrap from
// the HTTP full-snapshot endpoint and then apply ordered deltas from the
// grid.cell.state topic.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cellboard/cellboard/internal/model"
)

// TopicCellState carries one Envelope per batch of cell-state changes.
const TopicCellState = "grid.cell.state"

// EventCellStateChanged is the only event type currently emitted.
const EventCellStateChanged = "CellStateChanged"

// CellDelta is a single cell transition.  FREE deltas are emitted for
// released and vacated cells so consumers can drop them from their sparse
// snapshots.
type CellDelta struct {
	CellID string          `json:"cell_id"`
	State  model.CellState `json:"state"`
}

// Envelope wraps a payload with delivery metadata.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// CellStatePayload is the Envelope payload for EventCellStateChanged.
type CellStatePayload struct {
	Deltas []CellDelta `json:"deltas"`
}

// NewCellStateEnvelope builds the wire form of a delta batch.
func NewCellStateEnvelope(deltas []CellDelta) (Envelope, error) {
	raw, err := json.Marshal(CellStatePayload{Deltas: deltas})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  EventCellStateChanged,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Publisher delivers delta batches to subscribers.  Publishing is
// best-effort from the engine's point of view; a missed delta is repaired
// by the next snapshot bootstrap.
type Publisher interface {
	PublishCellDeltas(ctx context.Context, deltas []CellDelta)
}

// Nop discards all deltas.  Used in tests and when no broker is
// configured.
type Nop struct{}

func (Nop) PublishCellDeltas(context.Context, []CellDelta) {}
