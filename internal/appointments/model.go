package appointments

import (
	"time"
)

// Appointment is a locally owned booking record for a tattoo session.
type Appointment struct {
	ID                 string    `json:"id"`
	CustomerID         string    `json:"customer_id"`
	ExternalUID        *string   `json:"external_uid,omitempty"`
	ClientName         string    `json:"client_name"`
	ClientEmail        string    `json:"client_email"`
	ClientPhone        string    `json:"client_phone"`
	AppointmentDate    time.Time `json:"appointment_date"`
	Duration           int       `json:"duration"`
	Status             Status    `json:"status"`
	DepositPaid        bool      `json:"deposit_paid"`
	DepositAmountCents int64     `json:"deposit_amount_cents"`
	TotalPriceCents    int64     `json:"total_price_cents"`
	TattooStyle        string    `json:"tattoo_style"`
	Size               string    `json:"size"`
	Description        string    `json:"description"`
	Location           string    `json:"location"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EndsAt returns the scheduled end of the session.
func (a *Appointment) EndsAt() time.Time {
	return a.AppointmentDate.Add(time.Duration(a.Duration) * time.Minute)
}

func (a *Appointment) clone() *Appointment {
	cp := *a
	if a.ExternalUID != nil {
		uid := *a.ExternalUID
		cp.ExternalUID = &uid
	}
	return &cp
}

// TattooStyles lists the styles offered in the booking form.
var TattooStyles = []string{
	"Traditional",
	"Neo-Traditional",
	"Realism",
	"Black & Grey",
	"Watercolor",
	"Japanese",
	"Tribal",
	"Geometric",
	"Minimalist",
	"Blackwork",
	"Dotwork",
	"Lettering",
	"Portrait",
	"Cover-up",
	"Other",
}

// DefaultDuration is applied when a request omits the duration.
const DefaultDuration = 60

// CreateRequest is the body for creating an appointment.
type CreateRequest struct {
	CustomerID         string    `json:"customer_id"`
	ClientName         string    `json:"client_name"`
	ClientEmail        string    `json:"client_email"`
	ClientPhone        string    `json:"client_phone"`
	AppointmentDate    time.Time `json:"appointment_date"`
	Duration           int       `json:"duration"`
	Status             string    `json:"status"`
	DepositPaid        bool      `json:"deposit_paid"`
	DepositAmountCents int64     `json:"deposit_amount_cents"`
	TotalPriceCents    int64     `json:"total_price_cents"`
	TattooStyle        string    `json:"tattoo_style"`
	Size               string    `json:"size"`
	Description        string    `json:"description"`
	Location           string    `json:"location"`
}

// UpdateRequest replaces the editable fields of an appointment. When Version
// is set it must match the stored version.
type UpdateRequest struct {
	CreateRequest
	Version *int64 `json:"version,omitempty"`
}

// ExternalUpdate carries the synced fields of an external calendar booking.
type ExternalUpdate struct {
	UID                string
	CustomerID         string
	ClientName         string
	ClientEmail        string
	ClientPhone        string
	Start              time.Time
	End                time.Time
	Status             Status
	Description        string
	Location           string
	DepositPaid        bool
	DepositAmountCents int64
}
