package events

import "time"

const (
	TypeAppointmentCreated       = "appointment.created.v1"
	TypeAppointmentStatusChanged = "appointment.status_changed.v1"
	TypeAppointmentDeleted       = "appointment.deleted.v1"
	TypeBookingRequested         = "booking.requested.v1"
	TypeDepositPaid              = "payment.deposit_paid.v1"
	TypeContactReceived          = "contact.received.v1"
	TypeExternalBookingSynced    = "calsync.booking_synced.v1"
)

// AppointmentSnapshot is the subset of appointment fields notifications need.
type AppointmentSnapshot struct {
	AppointmentID   string    `json:"appointment_id"`
	CustomerID      string    `json:"customer_id"`
	ClientName      string    `json:"client_name,omitempty"`
	ClientEmail     string    `json:"client_email,omitempty"`
	AppointmentDate time.Time `json:"appointment_date"`
	Duration        int       `json:"duration"`
	TattooStyle     string    `json:"tattoo_style,omitempty"`
	Status          string    `json:"status"`
}

type AppointmentCreatedV1 struct {
	AppointmentSnapshot
	Source string `json:"source"`
}

func (AppointmentCreatedV1) EventType() string { return TypeAppointmentCreated }

type AppointmentStatusChangedV1 struct {
	AppointmentSnapshot
	From  string `json:"from"`
	To    string `json:"to"`
	Actor string `json:"actor,omitempty"`
}

func (AppointmentStatusChangedV1) EventType() string { return TypeAppointmentStatusChanged }

type AppointmentDeletedV1 struct {
	AppointmentID string `json:"appointment_id"`
	Actor         string `json:"actor,omitempty"`
}

func (AppointmentDeletedV1) EventType() string { return TypeAppointmentDeleted }

type BookingRequestedV1 struct {
	AppointmentSnapshot
	Description string `json:"description,omitempty"`
	Placement   string `json:"placement,omitempty"`
}

func (BookingRequestedV1) EventType() string { return TypeBookingRequested }

type DepositPaidV1 struct {
	AppointmentID   string    `json:"appointment_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Email           string    `json:"email,omitempty"`
	PaidAt          time.Time `json:"paid_at"`
}

func (DepositPaidV1) EventType() string { return TypeDepositPaid }

type ContactReceivedV1 struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
}

func (ContactReceivedV1) EventType() string { return TypeContactReceived }

type ExternalBookingSyncedV1 struct {
	UID           string `json:"uid"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Status        string `json:"status"`
	Created       bool   `json:"created"`
}

func (ExternalBookingSyncedV1) EventType() string { return TypeExternalBookingSynced }
