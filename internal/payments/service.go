package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

var tracer = otel.Tracer("inkstudio.internal.payments")

// Service creates and observes payment intents. The intent itself lives at
// the processor; nothing is persisted locally.
type Service struct {
	gateway  Gateway
	currency string
	logger   *logging.Logger
}

// NewService builds a payments service. gateway may be nil when payments
// are not configured.
func NewService(gateway Gateway, defaultCurrency string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	defaultCurrency = strings.ToLower(strings.TrimSpace(defaultCurrency))
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &Service{gateway: gateway, currency: defaultCurrency, logger: logger}
}

func (s *Service) Configured() bool {
	return s != nil && s.gateway != nil
}

// CreateIntent validates req and creates a processor intent. An empty
// idempotencyKey gets a fresh one.
func (s *Service) CreateIntent(ctx context.Context, req IntentRequest, idempotencyKey string) (*Intent, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	req.normalize(s.currency)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "payments.create_intent")
	defer span.End()
	span.SetAttributes(
		attribute.String("inkstudio.payment_type", string(req.PaymentType)),
		attribute.String("inkstudio.appointment_id", req.AppointmentID),
	)

	if strings.TrimSpace(idempotencyKey) == "" {
		idempotencyKey = uuid.NewString()
	}
	intent, err := s.gateway.CreateIntent(ctx, req, idempotencyKey)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("payment intent created",
		"payment_intent_id", intent.ID,
		"payment_type", req.PaymentType,
		"amount", req.Amount,
		"currency", req.Currency,
		"appointment_id", req.AppointmentID)
	return intent, nil
}

// GetIntent returns the current processor status without the client secret.
func (s *Service) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrIntentNotFound
	}
	intent, err := s.gateway.GetIntent(ctx, id)
	if err != nil {
		return nil, err
	}
	intent.ClientSecret = ""
	return intent, nil
}
