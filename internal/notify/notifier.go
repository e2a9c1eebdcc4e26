package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Notifier turns outbox entries into customer and studio emails. It is the
// events.DeliveryHandler used by the worker.
type Notifier struct {
	email       EmailSender
	studio      string
	studioEmail string
	loc         *time.Location
	sent        events.IdempotencyStore
	logger      *logging.Logger
}

// NotifierConfig configures studio-facing addresses and formatting.
type NotifierConfig struct {
	StudioName  string
	StudioEmail string
	Timezone    string
}

func NewNotifier(email EmailSender, cfg NotifierConfig, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	if cfg.StudioName == "" {
		cfg.StudioName = defaultFromName
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = time.UTC
	}
	return &Notifier{
		email:       email,
		studio:      cfg.StudioName,
		studioEmail: strings.TrimSpace(cfg.StudioEmail),
		loc:         loc,
		sent:        events.NewMemoryProcessedStore(),
		logger:      logger,
	}
}

// WithSentLog records delivered messages in store so a retried entry only
// re-sends the messages that failed. Use a shared store when several worker
// processes deliver from the same outbox.
func (n *Notifier) WithSentLog(store events.IdempotencyStore) *Notifier {
	if store != nil {
		n.sent = store
	}
	return n
}

const sentLogProvider = "notify.email"

var _ events.DeliveryHandler = (*Notifier)(nil)

// Handle sends the emails for one event. Any send failure fails the entry so
// the deliverer retries it; messages already in the sent log are skipped.
func (n *Notifier) Handle(ctx context.Context, entry events.OutboxEntry) error {
	msgs, err := n.messagesFor(entry)
	if err != nil {
		return err
	}
	var errs []error
	for i, msg := range msgs {
		if strings.TrimSpace(msg.To) == "" {
			continue
		}
		if msg.Tag == "" {
			msg.Tag = entry.Type
		}
		key := sentKey(entry.ID.String(), i, msg.To)
		if done, err := n.sent.AlreadyProcessed(ctx, sentLogProvider, key); err != nil {
			n.logger.Warn("sent log lookup failed", "error", err, "event_id", entry.ID)
		} else if done {
			n.logger.Debug("message already sent", "event_id", entry.ID, "to", msg.To)
			continue
		}
		if err := n.email.Send(ctx, msg); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := n.sent.MarkProcessed(ctx, sentLogProvider, key); err != nil {
			n.logger.Warn("sent log write failed", "error", err, "event_id", entry.ID)
		}
	}
	return errors.Join(errs...)
}

// sentKey identifies one message of an entry. messagesFor is deterministic
// for a given entry, so the index is stable across retries.
func sentKey(entryID string, index int, to string) string {
	return entryID + ":" + strconv.Itoa(index) + ":" + strings.ToLower(strings.TrimSpace(to))
}

func (n *Notifier) messagesFor(entry events.OutboxEntry) ([]EmailMessage, error) {
	evt := entry.Event()
	switch entry.Type {
	case events.TypeAppointmentStatusChanged:
		var p events.AppointmentStatusChangedV1
		if err := evt.Decode(&p); err != nil {
			return nil, err
		}
		var out []EmailMessage
		if msg, ok := n.customerStatusEmail(p.AppointmentSnapshot, p.To); ok {
			out = append(out, msg)
		}
		out = append(out, n.studioAlert(fmt.Sprintf("Appointment %s: %s → %s", shortID(p.AppointmentID), p.From, p.To), [][2]string{
			{"Client", p.ClientName},
			{"Email", p.ClientEmail},
			{"When", formatWhen(p.AppointmentDate, n.loc)},
			{"Changed by", p.Actor},
		}))
		return out, nil

	case events.TypeBookingRequested:
		var p events.BookingRequestedV1
		if err := evt.Decode(&p); err != nil {
			return nil, err
		}
		return []EmailMessage{
			n.bookingAckEmail(p),
			n.studioAlert("New booking request from "+p.ClientName, [][2]string{
				{"Client", p.ClientName},
				{"Email", p.ClientEmail},
				{"Requested for", formatWhen(p.AppointmentDate, n.loc)},
				{"Duration", strconv.Itoa(p.Duration) + " min"},
				{"Style", p.TattooStyle},
				{"Placement", p.Placement},
				{"Idea", p.Description},
			}),
		}, nil

	case events.TypeAppointmentCreated:
		var p events.AppointmentCreatedV1
		if err := evt.Decode(&p); err != nil {
			return nil, err
		}
		if p.Source != "calendar_sync" {
			return nil, nil
		}
		return []EmailMessage{n.studioAlert("New calendar booking: "+p.ClientName, [][2]string{
			{"Client", p.ClientName},
			{"Email", p.ClientEmail},
			{"When", formatWhen(p.AppointmentDate, n.loc)},
			{"Status", p.Status},
		})}, nil

	case events.TypeDepositPaid:
		var p events.DepositPaidV1
		if err := evt.Decode(&p); err != nil {
			return nil, err
		}
		amount := formatCents(p.AmountCents, p.Currency)
		return []EmailMessage{
			{
				To:      p.Email,
				Subject: "Deposit received",
				Body:    fmt.Sprintf("We received your deposit of %s. Thank you!\n\n%s", amount, n.studio),
				HTML:    wrapHTML(n.studio, fmt.Sprintf("<p>We received your deposit of <strong>%s</strong>. Thank you!</p>", amount)),
			},
			n.studioAlert("Deposit paid: "+amount, [][2]string{
				{"Appointment", p.AppointmentID},
				{"Payment", p.PaymentIntentID},
				{"Email", p.Email},
			}),
		}, nil

	case events.TypeContactReceived:
		var p events.ContactReceivedV1
		if err := evt.Decode(&p); err != nil {
			return nil, err
		}
		msg := n.studioAlert("New contact message from "+p.Name, [][2]string{
			{"Name", p.Name},
			{"Email", p.Email},
			{"Subject", p.Subject},
			{"Message", p.Message},
		})
		msg.ReplyTo = p.Email
		return []EmailMessage{msg}, nil
	}

	n.logger.Debug("no notification for event type", "type", entry.Type, "event_id", entry.ID)
	return nil, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
