package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingSink) Publish(ctx context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func newTestEvent(t *testing.T, at time.Time) Event {
	t.Helper()
	evt, err := New("appt-1", AppointmentStatusChangedV1{From: "SCHEDULED", To: "CONFIRMED"}, WithOccurredAt(at))
	require.NoError(t, err)
	return evt
}

func TestDelivererMarksDeliveredAndPublishesToSinks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	box := NewMemoryOutbox()
	evt := newTestEvent(t, now)
	require.NoError(t, box.Insert(ctx, evt))

	handler := &fakeHandler{}
	sink := &recordingSink{}
	d := NewDeliverer(box, handler, nil).WithSink(sink)
	d.now = func() time.Time { return now }

	d.Drain(ctx)

	entry, _ := box.Entry(evt.ID)
	assert.Equal(t, StatusDelivered, entry.Status)
	require.Len(t, sink.events, 1)
	assert.Equal(t, evt.ID, sink.events[0].ID)
}

func TestDelivererSchedulesBackoffThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	box := NewMemoryOutbox()
	evt := newTestEvent(t, now)
	require.NoError(t, box.Insert(ctx, evt))

	handler := &fakeHandler{err: errors.New("smtp unavailable")}
	d := NewDeliverer(box, handler, nil).WithMaxAttempts(3).WithBaseDelay(time.Minute)
	d.now = func() time.Time { return now }

	d.Drain(ctx)
	entry, _ := box.Entry(evt.ID)
	assert.Equal(t, 1, entry.Attempts)
	assert.Equal(t, now.Add(time.Minute), entry.NextAttemptAt)
	assert.Equal(t, "smtp unavailable", entry.LastError)

	now = entry.NextAttemptAt
	d.Drain(ctx)
	entry, _ = box.Entry(evt.ID)
	assert.Equal(t, 2, entry.Attempts)
	assert.Equal(t, now.Add(2*time.Minute), entry.NextAttemptAt)

	now = entry.NextAttemptAt
	d.Drain(ctx)
	entry, _ = box.Entry(evt.ID)
	assert.Equal(t, StatusDead, entry.Status)
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, 3, handler.calls)
}

func TestDelivererNextDelayCapped(t *testing.T) {
	d := NewDeliverer(nil, nil, nil).WithBaseDelay(time.Hour)
	assert.Equal(t, time.Hour, d.nextDelay(0))
	assert.Equal(t, 8*time.Hour, d.nextDelay(3))
	assert.Equal(t, 24*time.Hour, d.nextDelay(5))
	assert.Equal(t, 24*time.Hour, d.nextDelay(40))
}

func TestDelivererRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDeliverer(NewMemoryOutbox(), &fakeHandler{}, nil).WithInterval(time.Millisecond)
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliverer did not stop after cancel")
	}
}
