package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a versioned domain event together with its transport metadata.
type Event struct {
	ID          uuid.UUID       `json:"event_id"`
	Type        string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Payload is implemented by every versioned event body.
type Payload interface {
	EventType() string
}

// Option customizes a generated event (useful in tests).
type Option func(*Event)

// WithEventID overrides the automatically generated event id.
func WithEventID(id uuid.UUID) Option {
	return func(e *Event) {
		if id != uuid.Nil {
			e.ID = id
		}
	}
}

// WithOccurredAt overrides the event timestamp.
func WithOccurredAt(ts time.Time) Option {
	return func(e *Event) {
		if !ts.IsZero() {
			e.OccurredAt = ts.UTC()
		}
	}
}

var (
	errMissingAggregate = errors.New("events: aggregate id is required")
	errNilPayload       = errors.New("events: payload required")
	nowFunc             = time.Now
)

// New wraps payload in an Event keyed on aggregateID.
func New(aggregateID string, payload Payload, opts ...Option) (Event, error) {
	if strings.TrimSpace(aggregateID) == "" {
		return Event{}, errMissingAggregate
	}
	if payload == nil {
		return Event{}, errNilPayload
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: marshal %s: %w", payload.EventType(), err)
	}
	evt := Event{
		ID:          uuid.New(),
		Type:        payload.EventType(),
		AggregateID: aggregateID,
		OccurredAt:  nowFunc().UTC(),
		Payload:     data,
	}
	for _, opt := range opts {
		opt(&evt)
	}
	return evt, nil
}

// Decode unmarshals the event payload into dst.
func (e Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("events: decode %s: %w", e.Type, err)
	}
	return nil
}
