package events

import (
	"context"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// DeliveryHandler emits events to downstream transports.
type DeliveryHandler interface {
	Handle(ctx context.Context, entry OutboxEntry) error
}

// Sink receives events after they were delivered. Sink failures are logged only.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

// Deliverer polls the outbox, invokes the handler and retries failures with
// exponential backoff until the entry is dead-lettered.
type Deliverer struct {
	store       Outbox
	handler     DeliveryHandler
	sinks       []Sink
	logger      *logging.Logger
	metrics     *metrics.StudioMetrics
	batchSize   int
	interval    time.Duration
	maxAttempts int
	baseDelay   time.Duration
	now         func() time.Time
}

func NewDeliverer(store Outbox, handler DeliveryHandler, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		store:       store,
		handler:     handler,
		logger:      logger,
		batchSize:   25,
		interval:    2 * time.Second,
		maxAttempts: 5,
		baseDelay:   30 * time.Second,
		now:         time.Now,
	}
}

func (d *Deliverer) WithBatchSize(size int) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Deliverer) WithMaxAttempts(n int) *Deliverer {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

func (d *Deliverer) WithBaseDelay(delay time.Duration) *Deliverer {
	if delay > 0 {
		d.baseDelay = delay
	}
	return d
}

func (d *Deliverer) WithMetrics(m *metrics.StudioMetrics) *Deliverer {
	d.metrics = m
	return d
}

// WithSink adds a post-delivery sink such as the Kafka publisher.
func (d *Deliverer) WithSink(s Sink) *Deliverer {
	if s != nil {
		d.sinks = append(d.sinks, s)
	}
	return d
}

func (d *Deliverer) Run(ctx context.Context) {
	if d.store == nil || d.handler == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.Drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain processes one batch of due entries.
func (d *Deliverer) Drain(ctx context.Context) {
	entries, err := d.store.FetchDue(ctx, d.now().UTC(), d.batchSize)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		d.deliver(ctx, entry)
	}
}

func (d *Deliverer) deliver(ctx context.Context, entry OutboxEntry) {
	if err := d.handler.Handle(ctx, entry); err != nil {
		attempts := entry.Attempts + 1
		if attempts >= d.maxAttempts {
			d.logger.Error("outbox delivery dead-lettered", "error", err, "event_id", entry.ID, "type", entry.Type, "attempts", attempts)
			if markErr := d.store.MarkDead(ctx, entry.ID, attempts, err.Error()); markErr != nil {
				d.logger.Error("failed to dead-letter outbox entry", "error", markErr, "event_id", entry.ID)
			}
			d.metrics.ObserveDelivery(entry.Type, "dead")
			return
		}
		next := d.now().UTC().Add(d.nextDelay(entry.Attempts))
		d.logger.Warn("outbox delivery failed", "error", err, "event_id", entry.ID, "type", entry.Type, "attempts", attempts, "next_attempt_at", next)
		if schedErr := d.store.ScheduleRetry(ctx, entry.ID, attempts, next, err.Error()); schedErr != nil {
			d.logger.Error("schedule retry failed", "error", schedErr, "event_id", entry.ID)
		}
		d.metrics.ObserveDelivery(entry.Type, "retry")
		return
	}

	ok, err := d.store.MarkDelivered(ctx, entry.ID)
	if err != nil {
		d.logger.Error("failed to mark outbox delivered", "error", err, "event_id", entry.ID)
		return
	}
	if !ok {
		return
	}
	d.logger.Debug("outbox delivered", "event_id", entry.ID, "type", entry.Type)
	d.metrics.ObserveDelivery(entry.Type, "delivered")
	for _, sink := range d.sinks {
		if err := sink.Publish(ctx, entry.Event()); err != nil {
			d.logger.Warn("event sink publish failed", "error", err, "event_id", entry.ID)
		}
	}
}

func (d *Deliverer) nextDelay(attempts int) time.Duration {
	if attempts > 16 {
		return 24 * time.Hour
	}
	delay := d.baseDelay * time.Duration(1<<attempts)
	if delay > 24*time.Hour {
		delay = 24 * time.Hour
	}
	return delay
}
