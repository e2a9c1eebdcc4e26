package appointments

import "strings"

// normalize trims text fields and applies defaults in place. A blank status is
// left blank; callers decide what it means.
func (r *CreateRequest) normalize() {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.ClientEmail = strings.ToLower(strings.TrimSpace(r.ClientEmail))
	r.ClientPhone = strings.TrimSpace(r.ClientPhone)
	r.TattooStyle = strings.TrimSpace(r.TattooStyle)
	r.Status = strings.TrimSpace(r.Status)
	if r.Duration == 0 {
		r.Duration = DefaultDuration
	}
}

// Validate checks the request after normalization.
func (r *CreateRequest) Validate() error {
	if r.CustomerID == "" {
		return ErrMissingCustomer
	}
	if r.AppointmentDate.IsZero() {
		return ErrMissingDate
	}
	if !ValidDuration(r.Duration) {
		return ErrInvalidDuration
	}
	if r.Status != "" {
		if _, err := ParseStatus(r.Status); err != nil {
			return err
		}
	}
	if r.DepositAmountCents < 0 || r.TotalPriceCents < 0 {
		return ErrInvalidAmount
	}
	if r.TotalPriceCents > 0 && r.DepositAmountCents > r.TotalPriceCents {
		return ErrDepositExceeds
	}
	return nil
}

// ValidDuration reports whether minutes is at least 30 and a multiple of 15.
func ValidDuration(minutes int) bool {
	return minutes >= 30 && minutes%15 == 0
}

// roundDuration snaps an arbitrary length to the nearest valid duration at or above it.
func roundDuration(minutes int) int {
	if minutes < 30 {
		return 30
	}
	if rem := minutes % 15; rem != 0 {
		minutes += 15 - rem
	}
	return minutes
}
