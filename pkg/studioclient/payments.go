package studioclient

import (
	"context"
	"net/url"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/payments"
)

func (c *Client) CreatePaymentIntent(ctx context.Context, req payments.IntentRequest, idempotencyKey string) (*payments.Intent, error) {
	var out payments.Intent
	if idempotencyKey == "" {
		if err := c.send(ctx, "POST", "/api/payments/intents", req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	if err := c.sendWithKey(ctx, "/api/payments/intents", idempotencyKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*payments.Intent, error) {
	var out payments.Intent
	if err := c.get(ctx, "/api/payments/intents/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForPayment polls the intent on a fixed interval until it reaches a
// terminal status or ctx ends. onUpdate, when set, sees every poll result.
func (c *Client) WaitForPayment(ctx context.Context, id string, onUpdate func(*payments.Intent)) (*payments.Intent, error) {
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()
	for {
		intent, err := c.GetPaymentIntent(ctx, id)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(intent)
		}
		if payments.IsTerminal(intent.Status) {
			return intent, nil
		}
		select {
		case <-ctx.Done():
			return intent, ctx.Err()
		case <-ticker.C:
		}
	}
}
