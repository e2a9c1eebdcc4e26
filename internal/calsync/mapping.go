package calsync

import (
	"strings"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
)

// LocalStatus maps an external booking status onto the appointment state
// machine. COMPLETED and NO_SHOW have no external counterpart.
func LocalStatus(s BookingStatus) appointments.Status {
	switch s {
	case BookingAccepted:
		return appointments.StatusConfirmed
	case BookingCancelled, BookingRejected:
		return appointments.StatusCancelled
	default:
		return appointments.StatusScheduled
	}
}

func externalUpdate(b *Booking, customerID string) appointments.ExternalUpdate {
	upd := appointments.ExternalUpdate{
		UID:         b.UID,
		CustomerID:  customerID,
		ClientName:  b.Attendee.Name,
		ClientEmail: b.Attendee.Email,
		ClientPhone: b.Attendee.Phone,
		Start:       b.StartTime,
		End:         b.EndTime,
		Status:      LocalStatus(b.Status),
		Description: describe(b),
		Location:    b.Location,
	}
	if upd.ClientName == "" {
		upd.ClientName = b.Attendee.Email
	}
	if b.Payment != nil && b.Payment.Paid {
		upd.DepositPaid = true
		upd.DepositAmountCents = b.Payment.AmountMinor
	}
	return upd
}

func describe(b *Booking) string {
	parts := make([]string, 0, len(b.CustomInputs)+2)
	if b.Title != "" {
		parts = append(parts, b.Title)
	}
	if b.AdditionalNotes != "" {
		parts = append(parts, b.AdditionalNotes)
	}
	for _, in := range b.CustomInputs {
		parts = append(parts, in.Label+": "+in.Value)
	}
	return strings.Join(parts, "\n")
}
