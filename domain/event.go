package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a fact produced by a successful aggregate mutation.
type Event interface {
	EventID() string
	EventName() string
	AggregateID() string
	AggregateKind() string
	OccurredAt() time.Time
}

// EventBase carries the envelope fields shared by every concrete event.
type EventBase struct {
	ID        string    `json:"event_id"`
	Aggregate string    `json:"aggregate_id"`
	Kind      string    `json:"aggregate_kind"`
	At        time.Time `json:"occurred_at"`
}

func newEventBase(kind, aggregateID string, at time.Time) EventBase {
	return EventBase{
		ID:        uuid.NewString(),
		Aggregate: aggregateID,
		Kind:      kind,
		At:        at.UTC(),
	}
}

func (e EventBase) EventID() string       { return e.ID }
func (e EventBase) AggregateID() string   { return e.Aggregate }
func (e EventBase) AggregateKind() string { return e.Kind }
func (e EventBase) OccurredAt() time.Time { return e.At }

// EventRecord is the serialized form of an event once its aggregate version is known.
type EventRecord struct {
	ID            string            `json:"id"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateKind string            `json:"aggregate_kind"`
	Name          string            `json:"name"`
	Version       int64             `json:"version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`

	event Event
}

// NewEventRecord serializes e stamped with the aggregate version that produced it.
func NewEventRecord(e Event, version int64) (EventRecord, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return EventRecord{}, fmt.Errorf("marshal event %s: %w", e.EventName(), err)
	}
	return EventRecord{
		ID:            e.EventID(),
		AggregateID:   e.AggregateID(),
		AggregateKind: e.AggregateKind(),
		Name:          e.EventName(),
		Version:       version,
		Payload:       payload,
		CreatedAt:     e.OccurredAt(),
		event:         e,
	}, nil
}

// Event returns the typed event the record was built from. It is nil for
// records decoded from storage.
func (r EventRecord) Event() Event {
	return r.event
}
