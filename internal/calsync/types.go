package calsync

import (
	"errors"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
)

// BookingStatus is the status vocabulary of the external calendar.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingCancelled BookingStatus = "cancelled"
	BookingRejected  BookingStatus = "rejected"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingAccepted, BookingCancelled, BookingRejected:
		return true
	}
	return false
}

// Attendee is the customer on an external booking.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Payment summarizes a payment collected by the calendar provider.
type Payment struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Paid        bool   `json:"paid"`
}

// CustomInput is one answer to a booking form question.
type CustomInput struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Booking is the local copy of an external booking. Bookings are never
// deleted locally; cancellations arrive as a status.
type Booking struct {
	UID             string        `json:"uid"`
	Title           string        `json:"title"`
	Attendee        Attendee      `json:"attendee"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Status          BookingStatus `json:"status"`
	Location        string        `json:"location,omitempty"`
	Payment         *Payment      `json:"payment,omitempty"`
	CustomInputs    []CustomInput `json:"custom_inputs,omitempty"`
	AdditionalNotes string        `json:"additional_notes,omitempty"`
	InternalNotes   string        `json:"internal_notes,omitempty"`
	AppointmentID   string        `json:"appointment_id,omitempty"`
	SyncedAt        time.Time     `json:"synced_at"`
}

// SyncType selects which external bookings a run pulls.
type SyncType string

const (
	SyncAll         SyncType = "all"
	SyncUpcoming    SyncType = "upcoming"
	SyncPast        SyncType = "past"
	SyncCancelled   SyncType = "cancelled"
	SyncUnconfirmed SyncType = "unconfirmed"
)

func ParseSyncType(raw string) (SyncType, bool) {
	switch t := SyncType(raw); t {
	case "":
		return SyncAll, true
	case SyncAll, SyncUpcoming, SyncPast, SyncCancelled, SyncUnconfirmed:
		return t, true
	}
	return "", false
}

const (
	DefaultBatchSize = 50
	MaxBatchSize     = 100
)

// SyncOptions controls a single sync run.
type SyncOptions struct {
	ForceFullSync bool     `json:"force_full_sync"`
	BatchSize     int      `json:"batch_size"`
	SyncType      SyncType `json:"sync_type"`
}

func (o SyncOptions) normalized() SyncOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchSize > MaxBatchSize {
		o.BatchSize = MaxBatchSize
	}
	if o.SyncType == "" {
		o.SyncType = SyncAll
	}
	return o
}

// RecordError explains why one external record was skipped.
type RecordError struct {
	UID    string `json:"uid,omitempty"`
	Reason string `json:"reason"`
}

// SyncResult reports a sync run. Created+Updated == Processed-Errors.
type SyncResult struct {
	Processed    int           `json:"processed"`
	Created      int           `json:"created"`
	Updated      int           `json:"updated"`
	Errors       int           `json:"errors"`
	RecordErrors []RecordError `json:"record_errors,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`

	// CursorAdvanced is false when the incremental cursor was kept because
	// some records need another attempt or the page limit was hit.
	CursorAdvanced bool `json:"cursor_advanced"`
}

// HealthStatus describes the calendar integration.
type HealthStatus struct {
	Configured bool       `json:"configured"`
	Reachable  bool       `json:"reachable"`
	Message    string     `json:"message"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
}

var (
	ErrNotConfigured   = apperr.Unavailable(apperr.CodeNotConfigured, "calendar integration not configured")
	ErrSyncInProgress  = apperr.Conflict("sync_in_progress", "a calendar sync is already running")
	ErrBookingNotFound = apperr.NotFound("booking_not_found", "booking not found")
	ErrInvalidSyncType = apperr.Validation("invalid_sync_type", "sync_type", "sync_type must be one of all, upcoming, past, cancelled, unconfirmed")
	ErrEmptyNote       = apperr.Validation("note_required", "note", "note is required")
	ErrTransitionState = apperr.Conflict("booking_state", "booking cannot make this transition")

	errInvalidRecord = errors.New("invalid record")
)
