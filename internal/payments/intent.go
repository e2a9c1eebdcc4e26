package payments

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
)

// PaymentType distinguishes deposits from full payments.
type PaymentType string

const (
	PaymentDeposit PaymentType = "deposit"
	PaymentFull    PaymentType = "full"
)

// Intent statuses as reported by the processor.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresAction        = "requires_action"
	StatusProcessing            = "processing"
	StatusRequiresCapture       = "requires_capture"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
	StatusFailed                = "failed"
)

// IsTerminal reports whether polling an intent in this status can stop.
func IsTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusCanceled, StatusFailed:
		return true
	}
	return false
}

// maxAmount caps a single intent at 50k in major units.
const maxAmount = 50_000_00

// IntentRequest is the body of POST /api/payments/intents. Amount is in
// minor units.
type IntentRequest struct {
	Amount        int64             `json:"amount"`
	Email         string            `json:"email"`
	Name          string            `json:"name,omitempty"`
	BookingID     string            `json:"booking_id,omitempty"`
	AppointmentID string            `json:"appointment_id,omitempty"`
	PaymentType   PaymentType       `json:"payment_type"`
	Description   string            `json:"description,omitempty"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Intent is the client-facing view of a processor payment intent.
type Intent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

var (
	ErrNotConfigured      = apperr.Unavailable(apperr.CodeNotConfigured, "payments are not configured")
	ErrInvalidAmount      = apperr.Validation("invalid_amount", "amount", "amount must be a positive number of minor units")
	ErrInvalidEmail       = apperr.Validation("invalid_email", "email", "a valid email is required")
	ErrInvalidPaymentType = apperr.Validation("invalid_payment_type", "payment_type", "payment_type must be deposit or full")
	ErrInvalidCurrency    = apperr.Validation("invalid_currency", "currency", "currency must be a three letter ISO code")
	ErrIntentNotFound     = apperr.NotFound("payment_intent_not_found", "payment intent not found")
	ErrProcessor          = apperr.Unavailable("processor_error", "payment processor request failed")
)

var currencyPattern = regexp.MustCompile(`^[a-z]{3}$`)

func (r *IntentRequest) normalize(defaultCurrency string) {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.BookingID = strings.TrimSpace(r.BookingID)
	r.AppointmentID = strings.TrimSpace(r.AppointmentID)
	r.Description = strings.TrimSpace(r.Description)
	r.Currency = strings.ToLower(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = defaultCurrency
	}
	r.PaymentType = PaymentType(strings.ToLower(strings.TrimSpace(string(r.PaymentType))))
}

// Validate checks a normalized request.
func (r *IntentRequest) Validate() error {
	if r.Amount <= 0 || r.Amount > maxAmount {
		return ErrInvalidAmount
	}
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		return ErrInvalidEmail
	}
	if r.PaymentType != PaymentDeposit && r.PaymentType != PaymentFull {
		return ErrInvalidPaymentType
	}
	if !currencyPattern.MatchString(r.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

// metadata merges caller metadata with the reserved keys the webhook relies on.
func (r *IntentRequest) metadata() map[string]string {
	out := make(map[string]string, len(r.Metadata)+5)
	for k, v := range r.Metadata {
		out[k] = v
	}
	out["payment_type"] = string(r.PaymentType)
	out["email"] = r.Email
	if r.Name != "" {
		out["name"] = r.Name
	}
	if r.AppointmentID != "" {
		out["appointment_id"] = r.AppointmentID
	}
	if r.BookingID != "" {
		out["booking_id"] = r.BookingID
	}
	return out
}
