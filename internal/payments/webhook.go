package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

const providerStripe = "stripe"

// DepositRecorder marks an appointment's deposit as paid.
type DepositRecorder interface {
	MarkDepositPaid(ctx context.Context, id string, amountCents int64) (*appointments.Appointment, error)
}

// EventPublisher receives DepositPaid events.
type EventPublisher interface {
	Dispatch(ctx context.Context, evt events.Event) error
}

// WebhookHandler verifies and applies Stripe webhook events. Signature
// verification is the authentication.
type WebhookHandler struct {
	secret    string
	deposits  DepositRecorder
	processed events.IdempotencyStore
	events    EventPublisher
	metrics   *metrics.StudioMetrics
	logger    *logging.Logger
}

func NewWebhookHandler(secret string, deposits DepositRecorder, processed events.IdempotencyStore, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		secret:    strings.TrimSpace(secret),
		deposits:  deposits,
		processed: processed,
		logger:    logger,
	}
}

func (h *WebhookHandler) WithEvents(pub EventPublisher) *WebhookHandler {
	h.events = pub
	return h
}

func (h *WebhookHandler) WithMetrics(m *metrics.StudioMetrics) *WebhookHandler {
	h.metrics = m
	return h
}

// Handle processes POST /webhooks/stripe. Failures that Stripe should retry
// answer 5xx and leave the event unmarked.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		apperr.Write(w, h.logger, ErrNotConfigured)
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		apperr.WriteMessage(w, http.StatusBadRequest, "missing Stripe-Signature header")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		apperr.WriteMessage(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	evt, err := webhook.ConstructEventWithOptions(body, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		h.logger.Warn("stripe webhook signature rejected", "error", err)
		apperr.WriteMessage(w, http.StatusBadRequest, "invalid signature")
		return
	}
	evtType := string(evt.Type)
	ctx := r.Context()

	if h.processed != nil {
		seen, err := h.processed.AlreadyProcessed(ctx, providerStripe, evt.ID)
		if err != nil {
			h.logger.Error("processed lookup failed", "error", err, "event_id", evt.ID)
			apperr.WriteMessage(w, http.StatusInternalServerError, "server error")
			return
		}
		if seen {
			h.logger.Info("stripe event duplicate ignored", "event_id", evt.ID, "event_type", evtType)
			apperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
	}

	switch evtType {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			h.logger.Error("stripe: invalid payment intent payload", "error", err, "event_id", evt.ID)
			apperr.WriteMessage(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if err := h.handleSucceeded(ctx, &pi, time.Unix(evt.Created, 0).UTC()); err != nil {
			h.metrics.ObservePaymentEvent(evtType, false)
			h.logger.Error("failed to apply payment", "error", err, "event_id", evt.ID, "payment_intent_id", pi.ID)
			apperr.WriteMessage(w, http.StatusInternalServerError, "server error")
			return
		}
	case "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err == nil {
			h.logger.Info("payment intent did not complete", "event_type", evtType, "payment_intent_id", pi.ID,
				"appointment_id", pi.Metadata["appointment_id"])
		}
	default:
		h.logger.Debug("stripe event ignored", "event_type", evtType, "event_id", evt.ID)
	}
	h.metrics.ObservePaymentEvent(evtType, true)

	if h.processed != nil {
		if _, err := h.processed.MarkProcessed(ctx, providerStripe, evt.ID); err != nil {
			h.logger.Error("failed to record processed event", "error", err, "event_id", evt.ID)
		}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleSucceeded(ctx context.Context, pi *stripe.PaymentIntent, paidAt time.Time) error {
	appointmentID := strings.TrimSpace(pi.Metadata["appointment_id"])
	if PaymentType(pi.Metadata["payment_type"]) != PaymentDeposit || appointmentID == "" {
		h.logger.Info("payment succeeded", "payment_intent_id", pi.ID, "payment_type", pi.Metadata["payment_type"])
		return nil
	}
	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}

	email := pi.ReceiptEmail
	if email == "" {
		email = pi.Metadata["email"]
	}
	if h.deposits != nil {
		appt, err := h.deposits.MarkDepositPaid(ctx, appointmentID, amount)
		if errors.Is(err, appointments.ErrNotFound) {
			// appointment was deleted after checkout; nothing to reconcile
			h.logger.Warn("deposit paid for unknown appointment", "appointment_id", appointmentID, "payment_intent_id", pi.ID)
			return nil
		}
		if err != nil {
			return err
		}
		if email == "" {
			email = appt.ClientEmail
		}
	}

	if h.events != nil {
		evt, err := events.New(appointmentID, events.DepositPaidV1{
			AppointmentID:   appointmentID,
			PaymentIntentID: pi.ID,
			AmountCents:     amount,
			Currency:        string(pi.Currency),
			Email:           email,
			PaidAt:          paidAt,
		})
		if err == nil {
			err = h.events.Dispatch(ctx, evt)
		}
		if err != nil {
			h.logger.Error("deposit notification dispatch failed", "error", err, "appointment_id", appointmentID)
		}
	}
	h.logger.Info("deposit recorded", "appointment_id", appointmentID, "payment_intent_id", pi.ID, "amount", amount)
	return nil
}
