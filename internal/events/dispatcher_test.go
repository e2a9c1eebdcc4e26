package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingOutbox struct{}

func (failingOutbox) Insert(ctx context.Context, evt Event) error { return errors.New("db down") }

func TestDispatcherFansOut(t *testing.T) {
	ctx := context.Background()
	box := NewMemoryOutbox()
	live := &recordingSink{err: errors.New("no listeners")}
	d := NewDispatcher(box, nil, live)

	require.NoError(t, d.Publish(ctx, "appt-1", AppointmentDeletedV1{AppointmentID: "appt-1"}))

	require.Len(t, live.events, 1)
	_, ok := box.Entry(live.events[0].ID)
	assert.True(t, ok, "expected event in outbox")
}

func TestDispatcherReturnsOutboxError(t *testing.T) {
	d := NewDispatcher(failingOutbox{}, nil)
	err := d.Publish(context.Background(), "appt-1", AppointmentDeletedV1{AppointmentID: "appt-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.NoError(t, d.Dispatch(context.Background(), Event{}))
}

func TestNewEventValidation(t *testing.T) {
	_, err := New(" ", AppointmentDeletedV1{})
	assert.ErrorIs(t, err, errMissingAggregate)
	_, err = New("a", nil)
	assert.ErrorIs(t, err, errNilPayload)

	evt, err := New("appt-9", DepositPaidV1{AppointmentID: "appt-9", AmountCents: 5000})
	require.NoError(t, err)
	var decoded DepositPaidV1
	require.NoError(t, evt.Decode(&decoded))
	assert.Equal(t, int64(5000), decoded.AmountCents)
	assert.Equal(t, TypeDepositPaid, evt.Type)
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSinkPublishesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSinkWithWriter(w)
	evt, err := New("appt-7", AppointmentDeletedV1{AppointmentID: "appt-7"})
	require.NoError(t, err)

	require.NoError(t, sink.Publish(context.Background(), evt))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "appt-7", string(w.msgs[0].Key))
	assert.Equal(t, TypeAppointmentDeleted, string(w.msgs[0].Headers[1].Value))
	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaSinkDisabledWithoutBrokers(t *testing.T) {
	sink := NewKafkaSink(nil, "topic", nil)
	assert.Nil(t, sink)
	assert.NoError(t, sink.Publish(context.Background(), Event{}))
}
