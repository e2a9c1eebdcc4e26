package bookings

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/customers"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("inkstudio.internal.bookings")

// CustomerResolver finds or creates the customer behind a booking request.
type CustomerResolver interface {
	FindOrCreateByEmail(ctx context.Context, in customers.Input) (*customers.Customer, bool, error)
}

// AppointmentCreator stores the requested appointment.
type AppointmentCreator interface {
	CreateFromBookingRequest(ctx context.Context, req appointments.CreateRequest) (*appointments.Appointment, error)
}

// Request is the public booking form.
type Request struct {
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	PreferredDate  time.Time `json:"preferred_date"`
	Duration       int       `json:"duration"`
	TattooStyle    string    `json:"tattoo_style"`
	Size           string    `json:"size"`
	Description    string    `json:"description"`
	Placement      string    `json:"placement"`
	DepositAmount  int64     `json:"deposit_amount_cents"`
	EstimatedTotal int64     `json:"total_price_cents"`
}

var (
	ErrMissingName        = apperr.Validation("name_required", "name", "name is required")
	ErrMissingDate        = apperr.Validation("preferred_date_required", "preferred_date", "preferred_date is required")
	ErrPastDate           = apperr.Validation("preferred_date_past", "preferred_date", "preferred_date must be in the future")
	ErrDescriptionTooLong = apperr.Validation("description_too_long", "description", "description must be at most 2000 characters")
)

const maxDescription = 2000

// Service turns customer booking requests into SCHEDULED appointments.
type Service struct {
	customers CustomerResolver
	appts     AppointmentCreator
	logger    *logging.Logger
	now       func() time.Time
}

func NewService(custs CustomerResolver, appts AppointmentCreator, logger *logging.Logger) *Service {
	if custs == nil || appts == nil {
		panic("bookings: customers and appointments are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{customers: custs, appts: appts, logger: logger, now: time.Now}
}

// Submit validates req, resolves the customer by email and stores a
// SCHEDULED appointment. The confirmation email follows from the
// BookingRequested event.
func (s *Service) Submit(ctx context.Context, req Request) (*appointments.Appointment, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.submit")
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	switch {
	case req.Name == "":
		return nil, ErrMissingName
	case req.PreferredDate.IsZero():
		return nil, ErrMissingDate
	case !req.PreferredDate.After(s.now()):
		return nil, ErrPastDate
	case len([]rune(req.Description)) > maxDescription:
		return nil, ErrDescriptionTooLong
	}

	customer, created, err := s.customers.FindOrCreateByEmail(ctx, customers.Input{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("inkstudio.customer_id", customer.ID),
		attribute.Bool("inkstudio.customer_created", created),
	)

	appt, err := s.appts.CreateFromBookingRequest(ctx, appointments.CreateRequest{
		CustomerID:         customer.ID,
		ClientName:         req.Name,
		ClientEmail:        customer.Email,
		ClientPhone:        req.Phone,
		AppointmentDate:    req.PreferredDate.UTC(),
		Duration:           req.Duration,
		DepositAmountCents: req.DepositAmount,
		TotalPriceCents:    req.EstimatedTotal,
		TattooStyle:        req.TattooStyle,
		Size:               req.Size,
		Description:        req.Description,
		Location:           req.Placement,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("booking request received", "appointment_id", appt.ID, "customer_id", customer.ID, "new_customer", created)
	return appt, nil
}
