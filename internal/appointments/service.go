package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/internal/principal"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

var tracer = otel.Tracer("inkstudio.internal.appointments")

// CustomerLookup confirms that a referenced customer exists.
type CustomerLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// EventPublisher receives side effects after a change is persisted.
type EventPublisher interface {
	Dispatch(ctx context.Context, evt events.Event) error
}

// Service owns appointment lifecycle rules: validation, the status state
// machine, optimistic locking and side-effect dispatch.
type Service struct {
	repo      Repository
	customers CustomerLookup
	events    EventPublisher
	metrics   *metrics.StudioMetrics
	logger    *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) WithCustomers(lookup CustomerLookup) *Service {
	s.customers = lookup
	return s
}

func (s *Service) WithEvents(pub EventPublisher) *Service {
	s.events = pub
	return s
}

func (s *Service) WithMetrics(m *metrics.StudioMetrics) *Service {
	s.metrics = m
	return s
}

// Create validates req and stores a new appointment. Nothing is stored when
// validation fails.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer span.End()

	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}
	status := StatusScheduled
	if req.Status != "" {
		status, _ = ParseStatus(req.Status)
	}

	appt := &Appointment{ID: uuid.NewString(), Status: status}
	applyRequest(appt, req)
	if err := s.repo.Create(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("inkstudio.appointment_id", appt.ID))

	s.logger.Info("appointment created", "id", appt.ID, "customer_id", appt.CustomerID, "status", appt.Status)
	s.dispatch(ctx, appt.ID, events.AppointmentCreatedV1{AppointmentSnapshot: snapshot(appt), Source: "admin"})
	return appt, nil
}

// CreateFromBookingRequest stores a SCHEDULED appointment requested by a customer.
func (s *Service) CreateFromBookingRequest(ctx context.Context, req CreateRequest) (*Appointment, error) {
	req.Status = string(StatusScheduled)
	req.DepositPaid = false
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}
	appt := &Appointment{ID: uuid.NewString(), Status: StatusScheduled}
	applyRequest(appt, req)
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}
	s.logger.Info("booking request stored", "id", appt.ID, "customer_id", appt.CustomerID)
	s.dispatch(ctx, appt.ID, events.BookingRequestedV1{
		AppointmentSnapshot: snapshot(appt),
		Description:         appt.Description,
		Placement:           appt.Location,
	})
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Appointment, error) {
	return s.repo.List(ctx, filter)
}

// Update replaces the editable fields. A status change goes through the
// same transition table as SetStatus.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.update")
	defer span.End()

	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := current.Version
	if req.Version != nil {
		if *req.Version != current.Version {
			return nil, ErrVersionConflict
		}
		expected = *req.Version
	}
	if req.CustomerID != current.CustomerID {
		if err := s.checkCustomer(ctx, req.CustomerID); err != nil {
			return nil, err
		}
	}
	from := current.Status
	next := from
	if req.Status != "" {
		next, _ = ParseStatus(req.Status)
	}
	if next != from && !CanTransition(from, next) {
		s.metrics.ObserveTransition(string(from), string(next), false)
		return nil, transitionError(from, next)
	}

	updated := current.clone()
	applyRequest(updated, req.CreateRequest)
	updated.Status = next
	if err := s.repo.Update(ctx, updated, expected); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment updated", "id", id, "version", updated.Version)
	if next != from {
		s.statusChanged(ctx, updated, from)
	}
	return updated, nil
}

// SetStatus moves an appointment along the lifecycle. Requesting the
// current status succeeds without side effects.
func (s *Service) SetStatus(ctx context.Context, id string, raw string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.set_status")
	defer span.End()

	next, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("inkstudio.appointment_id", id),
		attribute.String("inkstudio.status.from", string(current.Status)),
		attribute.String("inkstudio.status.to", string(next)),
	)
	if current.Status == next {
		return current, nil
	}
	if !CanTransition(current.Status, next) {
		s.metrics.ObserveTransition(string(current.Status), string(next), false)
		return nil, transitionError(current.Status, next)
	}

	from := current.Status
	updated := current.clone()
	updated.Status = next
	if err := s.repo.Update(ctx, updated, current.Version); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.statusChanged(ctx, updated, from)
	return updated, nil
}

// MarkDepositPaid records a settled deposit. Already-paid appointments are returned unchanged.
func (s *Service) MarkDepositPaid(ctx context.Context, id string, amountCents int64) (*Appointment, error) {
	for attempt := 0; attempt < 3; attempt++ {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.DepositPaid && current.DepositAmountCents == amountCents {
			return current, nil
		}
		updated := current.clone()
		updated.DepositPaid = true
		updated.DepositAmountCents = amountCents
		err = s.repo.Update(ctx, updated, current.Version)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("appointment deposit recorded", "id", id, "amount_cents", amountCents)
		return updated, nil
	}
	return nil, ErrVersionConflict
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("appointment deleted", "id", id)
	s.dispatch(ctx, id, events.AppointmentDeletedV1{AppointmentID: id, Actor: principal.ActorFromContext(ctx)})
	return nil
}

// ReconcileExternal is the single writer of synced fields for an external
// booking. It creates the linked appointment on first sight and otherwise
// updates it, applying the mapped status only along legal edges.
func (s *Service) ReconcileExternal(ctx context.Context, ext ExternalUpdate) (*Appointment, bool, error) {
	ctx, span := tracer.Start(ctx, "appointments.reconcile_external")
	defer span.End()
	span.SetAttributes(attribute.String("inkstudio.external_uid", ext.UID))

	if strings.TrimSpace(ext.UID) == "" {
		return nil, false, errors.New("appointments: external uid required")
	}
	if !ext.Status.Valid() {
		return nil, false, ErrInvalidStatus
	}
	duration := roundDuration(int(ext.End.Sub(ext.Start).Minutes()))

	current, err := s.repo.GetByExternalUID(ctx, ext.UID)
	if errors.Is(err, ErrNotFound) {
		if strings.TrimSpace(ext.CustomerID) == "" {
			return nil, false, ErrMissingCustomer
		}
		uid := ext.UID
		appt := &Appointment{
			ID:                 uuid.NewString(),
			CustomerID:         ext.CustomerID,
			ExternalUID:        &uid,
			ClientName:         ext.ClientName,
			ClientEmail:        strings.ToLower(ext.ClientEmail),
			ClientPhone:        ext.ClientPhone,
			AppointmentDate:    ext.Start.UTC(),
			Duration:           duration,
			Status:             ext.Status,
			DepositPaid:        ext.DepositPaid,
			DepositAmountCents: ext.DepositAmountCents,
			Description:        ext.Description,
			Location:           ext.Location,
		}
		if err := s.repo.Create(ctx, appt); err != nil {
			return nil, false, err
		}
		s.dispatch(ctx, appt.ID, events.AppointmentCreatedV1{AppointmentSnapshot: snapshot(appt), Source: "calendar_sync"})
		return appt, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	updated := current.clone()
	updated.ClientName = ext.ClientName
	updated.ClientEmail = strings.ToLower(ext.ClientEmail)
	if ext.ClientPhone != "" {
		updated.ClientPhone = ext.ClientPhone
	}
	updated.AppointmentDate = ext.Start.UTC()
	updated.Duration = duration
	if ext.Description != "" {
		updated.Description = ext.Description
	}
	if ext.Location != "" {
		updated.Location = ext.Location
	}
	if ext.DepositPaid && !updated.DepositPaid {
		updated.DepositPaid = true
		updated.DepositAmountCents = ext.DepositAmountCents
	}

	from := current.Status
	if ext.Status != from {
		if CanTransition(from, ext.Status) {
			updated.Status = ext.Status
		} else {
			s.logger.Warn("external status drift, keeping local status",
				"appointment_id", current.ID, "external_uid", ext.UID,
				"local_status", from, "external_status", ext.Status)
		}
	}
	if sameSyncedFields(current, updated) {
		return current, false, nil
	}
	if err := s.repo.Update(ctx, updated, current.Version); err != nil {
		return nil, false, err
	}
	if updated.Status != from {
		s.statusChanged(ctx, updated, from)
	}
	return updated, false, nil
}

func (s *Service) checkCustomer(ctx context.Context, id string) error {
	if s.customers == nil {
		return nil
	}
	ok, err := s.customers.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownCustomer
	}
	return nil
}

func (s *Service) statusChanged(ctx context.Context, appt *Appointment, from Status) {
	s.metrics.ObserveTransition(string(from), string(appt.Status), true)
	s.logger.Info("appointment status changed", "id", appt.ID, "from", from, "to", appt.Status)
	s.dispatch(ctx, appt.ID, events.AppointmentStatusChangedV1{
		AppointmentSnapshot: snapshot(appt),
		From:                string(from),
		To:                  string(appt.Status),
		Actor:               principal.ActorFromContext(ctx),
	})
}

// dispatch never fails the surrounding mutation; the change is already persisted.
func (s *Service) dispatch(ctx context.Context, aggregateID string, payload events.Payload) {
	if s.events == nil {
		return
	}
	evt, err := events.New(aggregateID, payload)
	if err == nil {
		err = s.events.Dispatch(ctx, evt)
	}
	if err != nil {
		s.logger.Error("appointment side effect dispatch failed", "error", err, "appointment_id", aggregateID, "type", payload.EventType())
	}
}

func applyRequest(appt *Appointment, req CreateRequest) {
	appt.CustomerID = req.CustomerID
	appt.ClientName = req.ClientName
	appt.ClientEmail = req.ClientEmail
	appt.ClientPhone = req.ClientPhone
	appt.AppointmentDate = req.AppointmentDate.UTC()
	appt.Duration = req.Duration
	appt.DepositPaid = req.DepositPaid
	appt.DepositAmountCents = req.DepositAmountCents
	appt.TotalPriceCents = req.TotalPriceCents
	appt.TattooStyle = req.TattooStyle
	appt.Size = req.Size
	appt.Description = req.Description
	appt.Location = req.Location
}

func snapshot(appt *Appointment) events.AppointmentSnapshot {
	return events.AppointmentSnapshot{
		AppointmentID:   appt.ID,
		CustomerID:      appt.CustomerID,
		ClientName:      appt.ClientName,
		ClientEmail:     appt.ClientEmail,
		AppointmentDate: appt.AppointmentDate,
		Duration:        appt.Duration,
		TattooStyle:     appt.TattooStyle,
		Status:          string(appt.Status),
	}
}

func sameSyncedFields(a, b *Appointment) bool {
	return a.ClientName == b.ClientName &&
		a.ClientEmail == b.ClientEmail &&
		a.ClientPhone == b.ClientPhone &&
		a.AppointmentDate.Equal(b.AppointmentDate) &&
		a.Duration == b.Duration &&
		a.Description == b.Description &&
		a.Location == b.Location &&
		a.DepositPaid == b.DepositPaid &&
		a.Status == b.Status
}

// nowUTC is swapped in tests that need stable export timestamps.
var nowUTC = func() time.Time { return time.Now().UTC() }
