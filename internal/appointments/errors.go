package appointments

import "github.com/wolfman30/inkstudio-platform/internal/apperr"

var (
	ErrNotFound          = apperr.NotFound("appointment_not_found", "appointment not found")
	ErrMissingCustomer   = apperr.Validation("customer_required", "customer_id", "customer_id is required")
	ErrUnknownCustomer   = apperr.Validation("customer_unknown", "customer_id", "customer does not exist")
	ErrMissingDate       = apperr.Validation("appointment_date_required", "appointment_date", "appointment_date is required")
	ErrInvalidDuration   = apperr.Validation("invalid_duration", "duration", "duration must be at least 30 minutes in steps of 15")
	ErrInvalidStatus     = apperr.Validation("invalid_status", "status", "status must be one of SCHEDULED, CONFIRMED, COMPLETED, CANCELLED, NO_SHOW")
	ErrInvalidTransition = apperr.Validation("invalid_transition", "status", "status transition not allowed")
	ErrInvalidAmount     = apperr.Validation("invalid_amount", "deposit_amount_cents", "amounts must not be negative")
	ErrDepositExceeds    = apperr.Validation("deposit_exceeds_total", "deposit_amount_cents", "deposit cannot exceed the total price")
	ErrVersionConflict   = apperr.Conflict("version_conflict", "appointment was modified by someone else, reload and try again")
	ErrDuplicateExternal = apperr.Conflict("external_uid_taken", "external booking already linked to another appointment")
)

func transitionError(from, to Status) error {
	return apperr.Withf(ErrInvalidTransition, "cannot change status from %s to %s", from, to)
}
