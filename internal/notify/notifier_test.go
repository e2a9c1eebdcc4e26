package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/inkstudio-platform/internal/events"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func entryFor(t *testing.T, payload events.Payload) events.OutboxEntry {
	t.Helper()
	evt, err := events.New("appt-1", payload)
	require.NoError(t, err)
	return events.OutboxEntry{ID: evt.ID, Type: evt.Type, AggregateID: evt.AggregateID, Payload: evt.Payload, CreatedAt: evt.OccurredAt}
}

func newTestNotifier(sender EmailSender) *Notifier {
	return NewNotifier(sender, NotifierConfig{StudioName: "Black Anchor", StudioEmail: "desk@blackanchor.test"}, nil)
}

func TestNotifierStatusChangedEmailsCustomerAndStudio(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender)
	entry := entryFor(t, events.AppointmentStatusChangedV1{
		AppointmentSnapshot: events.AppointmentSnapshot{
			AppointmentID:   "appt-1",
			ClientName:      "Ada",
			ClientEmail:     "ada@example.com",
			AppointmentDate: time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		},
		From: "SCHEDULED",
		To:   "CONFIRMED",
	})

	require.NoError(t, n.Handle(context.Background(), entry))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "ada@example.com", sender.sent[0].To)
	assert.Equal(t, "Your tattoo appointment is confirmed", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Sunday, June 1, 2025")
	assert.Equal(t, "desk@blackanchor.test", sender.sent[1].To)
}

type failOnceFor struct {
	recordingSender
	to     string
	failed bool
}

func (f *failOnceFor) Send(ctx context.Context, msg EmailMessage) error {
	if msg.To == f.to && !f.failed {
		f.failed = true
		return errors.New("smtp timeout")
	}
	return f.recordingSender.Send(ctx, msg)
}

func TestNotifierRetryOnlyResendsFailedMessages(t *testing.T) {
	sender := &failOnceFor{to: "desk@blackanchor.test"}
	sentLog := events.NewMemoryProcessedStore()
	n := newTestNotifier(sender).WithSentLog(sentLog)
	entry := entryFor(t, events.AppointmentStatusChangedV1{
		AppointmentSnapshot: events.AppointmentSnapshot{
			AppointmentID:   "appt-1",
			ClientName:      "Ada",
			ClientEmail:     "ada@example.com",
			AppointmentDate: time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		},
		From: "SCHEDULED",
		To:   "CONFIRMED",
	})

	require.Error(t, n.Handle(context.Background(), entry))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].To)

	require.NoError(t, n.Handle(context.Background(), entry))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "desk@blackanchor.test", sender.sent[1].To)

	require.NoError(t, n.Handle(context.Background(), entry))
	assert.Len(t, sender.sent, 2)
}

func TestNotifierSkipsMissingRecipients(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, NotifierConfig{}, nil)
	entry := entryFor(t, events.AppointmentStatusChangedV1{From: "SCHEDULED", To: "CONFIRMED"})

	require.NoError(t, n.Handle(context.Background(), entry))
	assert.Empty(t, sender.sent)
}

func TestNotifierBookingRequestAndContact(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender)

	require.NoError(t, n.Handle(context.Background(), entryFor(t, events.BookingRequestedV1{
		AppointmentSnapshot: events.AppointmentSnapshot{ClientName: "Grace", ClientEmail: "grace@example.com", Duration: 90},
		Description:         "<script>alert(1)</script>",
	})))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "We received your booking request", sender.sent[0].Subject)
	assert.NotContains(t, sender.sent[1].HTML, "<script>")

	sender.sent = nil
	require.NoError(t, n.Handle(context.Background(), entryFor(t, events.ContactReceivedV1{Name: "Linus", Email: "linus@example.com", Message: "hi"})))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "linus@example.com", sender.sent[0].ReplyTo)
}

func TestNotifierSendFailureFailsEntry(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	n := newTestNotifier(sender)
	err := n.Handle(context.Background(), entryFor(t, events.DepositPaidV1{AppointmentID: "appt-1", Email: "ada@example.com", AmountCents: 5000, Currency: "usd"}))
	require.Error(t, err)
	assert.Contains(t, sender.sent[0].Body, "50.00 USD")
}

func TestNotifierIgnoresUnhandledTypes(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(sender)
	require.NoError(t, n.Handle(context.Background(), entryFor(t, events.AppointmentDeletedV1{AppointmentID: "appt-1"})))
	require.NoError(t, n.Handle(context.Background(), entryFor(t, events.AppointmentCreatedV1{Source: "admin"})))
	assert.Empty(t, sender.sent)
}

func TestNotifierRejectsCorruptPayload(t *testing.T) {
	n := newTestNotifier(&recordingSender{})
	entry := events.OutboxEntry{Type: events.TypeBookingRequested, Payload: []byte("{")}
	assert.Error(t, n.Handle(context.Background(), entry))
}
