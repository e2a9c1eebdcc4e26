package calsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/customers"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/internal/principal"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

var tracer = otel.Tracer("inkstudio.internal.calsync")

const maxPages = 500

// AppointmentReconciler applies external state to local appointments.
type AppointmentReconciler interface {
	ReconcileExternal(ctx context.Context, ext appointments.ExternalUpdate) (*appointments.Appointment, bool, error)
}

// CustomerResolver finds or creates the customer behind an attendee.
type CustomerResolver interface {
	FindOrCreateByEmail(ctx context.Context, in customers.Input) (*customers.Customer, bool, error)
}

// EventPublisher receives per-booking sync events.
type EventPublisher interface {
	Dispatch(ctx context.Context, evt events.Event) error
}

// Syncer pulls bookings from the external calendar and reconciles them
// into local bookings, customers and appointments.
type Syncer struct {
	api          API
	bookings     BookingStore
	state        StateStore
	appointments AppointmentReconciler
	customers    CustomerResolver
	events       EventPublisher
	metrics      *metrics.StudioMetrics
	lockTTL      time.Duration
	pageLimit    int
	logger       *logging.Logger
	now          func() time.Time
}

// NewSyncer builds a syncer. api may be nil when the integration is not
// configured; sync calls then fail with ErrNotConfigured.
func NewSyncer(api API, bookings BookingStore, state StateStore, appts AppointmentReconciler, custs CustomerResolver, logger *logging.Logger) *Syncer {
	if bookings == nil || state == nil || appts == nil || custs == nil {
		panic("calsync: booking store, state store, appointments and customers are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Syncer{
		api:          api,
		bookings:     bookings,
		state:        state,
		appointments: appts,
		customers:    custs,
		lockTTL:      5 * time.Minute,
		pageLimit:    maxPages,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Syncer) WithEvents(pub EventPublisher) *Syncer {
	s.events = pub
	return s
}

func (s *Syncer) WithMetrics(m *metrics.StudioMetrics) *Syncer {
	s.metrics = m
	return s
}

func (s *Syncer) WithLockTTL(ttl time.Duration) *Syncer {
	if ttl > 0 {
		s.lockTTL = ttl
	}
	return s
}

// Configured reports whether an API client is present.
func (s *Syncer) Configured() bool {
	return s != nil && s.api != nil
}

// SyncBookings runs one sync. Malformed or unreconcilable records are
// counted and reported without aborting the run; list failures, a missing
// configuration or a held lock abort it.
func (s *Syncer) SyncBookings(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	opts = opts.normalized()
	if _, ok := ParseSyncType(string(opts.SyncType)); !ok {
		return nil, ErrInvalidSyncType
	}

	ctx, span := tracer.Start(ctx, "calsync.sync_bookings")
	defer span.End()
	span.SetAttributes(
		attribute.String("inkstudio.sync_type", string(opts.SyncType)),
		attribute.Bool("inkstudio.full_sync", opts.ForceFullSync),
	)

	release, err := s.state.Acquire(ctx, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("calendar sync lock release failed", "error", err)
		}
	}()

	result := &SyncResult{StartedAt: s.now()}
	var cursor time.Time
	if !opts.ForceFullSync {
		cursor, err = s.state.LastSync(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	// retry is set when a record failed for a reason other than bad data.
	// The cursor then stays put so the next incremental run sees it again.
	retry, exhausted := false, true
	for page, skip := 0, 0; page < s.pageLimit; page++ {
		p, err := s.api.ListBookings(ctx, ListParams{
			Take:           opts.BatchSize,
			Skip:           skip,
			Status:         opts.SyncType,
			AfterUpdatedAt: cursor,
		})
		if err != nil {
			span.RecordError(err)
			s.logger.Error("calendar sync aborted", "error", err, "processed", result.Processed)
			return nil, fmt.Errorf("calsync: %w", err)
		}
		for _, raw := range p.Records {
			result.Processed++
			uid := recordUID(raw)
			created, err := s.syncRecord(ctx, raw)
			if err != nil {
				result.Errors++
				result.RecordErrors = append(result.RecordErrors, RecordError{UID: uid, Reason: err.Error()})
				s.logger.Warn("skipping external booking", "uid", uid, "reason", err.Error())
				if !errors.Is(err, errInvalidRecord) {
					retry = true
				}
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		skip += len(p.Records)
		if !p.HasNextPage || len(p.Records) == 0 {
			exhausted = false
			break
		}
	}

	result.FinishedAt = s.now()
	switch {
	case retry || exhausted:
		s.logger.Warn("calendar sync cursor not advanced",
			"retryable_errors", retry, "page_limit_reached", exhausted, "cursor", cursor)
	default:
		if err := s.state.SetLastSync(ctx, result.StartedAt); err != nil {
			s.logger.Warn("failed to store sync cursor", "error", err)
		} else {
			result.CursorAdvanced = true
		}
	}
	s.metrics.ObserveSync(result.Created, result.Updated, result.Errors, result.FinishedAt.Sub(result.StartedAt).Seconds())
	s.logger.Info("calendar sync finished",
		"processed", result.Processed, "created", result.Created,
		"updated", result.Updated, "errors", result.Errors,
		"sync_type", opts.SyncType, "full", opts.ForceFullSync)
	return result, nil
}

// syncRecord validates and reconciles one record. The booking row is the
// last write so that a record is only counted once everything succeeded.
func (s *Syncer) syncRecord(ctx context.Context, raw []byte) (bool, error) {
	b, err := decodeBooking(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errInvalidRecord, err)
	}
	if existing, err := s.bookings.Get(ctx, b.UID); err == nil {
		b.InternalNotes = existing.InternalNotes
	} else if !errors.Is(err, ErrBookingNotFound) {
		return false, err
	}
	return s.reconcile(ctx, b)
}

func (s *Syncer) reconcile(ctx context.Context, b *Booking) (bool, error) {
	cust, _, err := s.customers.FindOrCreateByEmail(ctx, customers.Input{
		Name:  b.Attendee.Name,
		Email: b.Attendee.Email,
		Phone: b.Attendee.Phone,
	})
	if err != nil {
		return false, fmt.Errorf("resolve customer: %w", err)
	}
	appt, _, err := s.appointments.ReconcileExternal(ctx, externalUpdate(b, cust.ID))
	if err != nil {
		return false, fmt.Errorf("reconcile appointment: %w", err)
	}
	b.AppointmentID = appt.ID
	b.SyncedAt = s.now()
	created, err := s.bookings.Upsert(ctx, b)
	if err != nil {
		return false, err
	}

	if s.events != nil {
		evt, err := events.New(appt.ID, events.ExternalBookingSyncedV1{
			UID:           b.UID,
			AppointmentID: appt.ID,
			Status:        string(b.Status),
			Created:       created,
		})
		if err == nil {
			err = s.events.Dispatch(ctx, evt)
		}
		if err != nil {
			s.logger.Warn("booking sync event dispatch failed", "error", err, "uid", b.UID)
		}
	}
	return created, nil
}

// HealthStatus reports configuration, reachability and the last sync time.
func (s *Syncer) HealthStatus(ctx context.Context) HealthStatus {
	h := HealthStatus{Configured: s.Configured()}
	if last, err := s.state.LastSync(ctx); err == nil && !last.IsZero() {
		h.LastSync = &last
	}
	if !h.Configured {
		h.Message = "calendar API key not configured"
		return h
	}
	if err := s.api.Ping(ctx); err != nil {
		h.Message = "calendar API unreachable"
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403) {
			h.Message = "calendar API rejected the credentials"
		}
		s.logger.Warn("calendar health check failed", "error", err)
		return h
	}
	h.Reachable = true
	h.Message = "ok"
	return h
}

func (s *Syncer) ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int, error) {
	return s.bookings.List(ctx, filter)
}

func (s *Syncer) GetBooking(ctx context.Context, uid string) (*Booking, error) {
	return s.bookings.Get(ctx, uid)
}

// Confirm accepts a pending booking upstream and mirrors it locally.
func (s *Syncer) Confirm(ctx context.Context, uid string) (*Booking, error) {
	return s.transition(ctx, uid, BookingAccepted, func(ctx context.Context) error {
		return s.api.Confirm(ctx, uid)
	}, BookingPending)
}

// Reject declines a pending booking.
func (s *Syncer) Reject(ctx context.Context, uid, reason string) (*Booking, error) {
	return s.transition(ctx, uid, BookingRejected, func(ctx context.Context) error {
		return s.api.Decline(ctx, uid, reason)
	}, BookingPending)
}

// Cancel cancels a pending or accepted booking.
func (s *Syncer) Cancel(ctx context.Context, uid, reason string) (*Booking, error) {
	return s.transition(ctx, uid, BookingCancelled, func(ctx context.Context) error {
		return s.api.Cancel(ctx, uid, reason)
	}, BookingPending, BookingAccepted)
}

func (s *Syncer) transition(ctx context.Context, uid string, to BookingStatus, call func(context.Context) error, from ...BookingStatus) (*Booking, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	ctx, span := tracer.Start(ctx, "calsync.transition")
	defer span.End()
	span.SetAttributes(attribute.String("inkstudio.external_uid", uid), attribute.String("inkstudio.to", string(to)))

	b, err := s.bookings.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, f := range from {
		if b.Status == f {
			allowed = true
		}
	}
	if !allowed {
		return nil, ErrTransitionState
	}
	if err := call(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("calsync: %w", err)
	}
	b.Status = to
	if _, err := s.reconcile(ctx, b); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("external booking transitioned", "uid", uid, "status", to, "actor", principal.ActorFromContext(ctx))
	return b, nil
}

// AppendInternalNote adds a timestamped, local-only note to a booking.
func (s *Syncer) AppendInternalNote(ctx context.Context, uid, note string) (*Booking, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, ErrEmptyNote
	}
	b, err := s.bookings.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	line := fmt.Sprintf("[%s] %s: %s", s.now().Format("2006-01-02 15:04 MST"), principal.ActorFromContext(ctx), note)
	if b.InternalNotes != "" {
		b.InternalNotes += "\n"
	}
	b.InternalNotes += line
	if err := s.bookings.SetInternalNotes(ctx, uid, b.InternalNotes); err != nil {
		return nil, err
	}
	return b, nil
}
