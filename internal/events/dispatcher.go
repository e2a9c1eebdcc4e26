package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Enqueuer is the write side of an Outbox.
type Enqueuer interface {
	Insert(ctx context.Context, evt Event) error
}

// Dispatcher fans a freshly persisted state change out to the outbox and any
// live listeners.
type Dispatcher struct {
	outbox Enqueuer
	live   []Sink
	logger *logging.Logger
}

func NewDispatcher(outbox Enqueuer, logger *logging.Logger, live ...Sink) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{outbox: outbox, live: live, logger: logger}
}

// Dispatch enqueues evt for reliable delivery and broadcasts it to live
// sinks. Live sink failures are logged; only an outbox failure is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.outbox != nil {
		if err := d.outbox.Insert(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("events: enqueue %s: %w", evt.Type, err))
		}
	}
	for _, sink := range d.live {
		if err := sink.Publish(ctx, evt); err != nil {
			d.logger.Warn("live event publish failed", "error", err, "type", evt.Type, "aggregate_id", evt.AggregateID)
		}
	}
	return errors.Join(errs...)
}

// Publish builds an event from payload and dispatches it.
func (d *Dispatcher) Publish(ctx context.Context, aggregateID string, payload Payload) error {
	evt, err := New(aggregateID, payload)
	if err != nil {
		return err
	}
	return d.Dispatch(ctx, evt)
}
