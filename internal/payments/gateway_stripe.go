package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
)

// Gateway creates and reads payment intents at the processor.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest, idempotencyKey string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// StripeGateway implements Gateway with stripe-go.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway returns nil without a secret key. backends may be nil
// to use Stripe's default endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	if strings.TrimSpace(secretKey) == "" {
		return nil
	}
	return &StripeGateway{api: client.New(strings.TrimSpace(secretKey), backends)}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest, idempotencyKey string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(req.Amount),
		Currency:     stripe.String(req.Currency),
		ReceiptEmail: stripe.String(req.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.metadata() {
		params.AddMetadata(k, v)
	}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return apperr.Wrap(ErrProcessor, err)
	}
	switch {
	case stripeErr.Code == stripe.ErrorCodeResourceMissing:
		return apperr.Wrap(ErrIntentNotFound, err)
	case stripeErr.Type == stripe.ErrorTypeCard, stripeErr.Type == stripe.ErrorTypeInvalidRequest:
		return apperr.Wrap(apperr.Validation("processor_rejected", "", stripeErr.Msg), err)
	default:
		return apperr.Wrap(ErrProcessor, err)
	}
}
