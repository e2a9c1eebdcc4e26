package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Dispatch(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type staticCustomers map[string]bool

func (s staticCustomers) Exists(ctx context.Context, id string) (bool, error) {
	return s[id], nil
}

func newTestService() (*Service, *InMemoryRepository, *recordingPublisher) {
	repo := NewInMemoryRepository()
	pub := &recordingPublisher{}
	svc := NewService(repo, nil).WithEvents(pub)
	return svc, repo, pub
}

func validRequest() CreateRequest {
	return CreateRequest{
		CustomerID:         "c1",
		ClientName:         "Ada Lovelace",
		ClientEmail:        "Ada@Example.com",
		AppointmentDate:    time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		Duration:           120,
		Status:             "SCHEDULED",
		DepositAmountCents: 5000,
		TotalPriceCents:    30000,
	}
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService()

	appt, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	require.NotEmpty(t, appt.ID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, "ada@example.com", appt.ClientEmail)
	assert.False(t, appt.DepositPaid)
	assert.Equal(t, int64(5000), appt.DepositAmountCents)

	completed, err := svc.SetStatus(ctx, appt.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = svc.SetStatus(ctx, appt.ID, "SCHEDULED")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	stored, err := svc.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, []string{events.TypeAppointmentCreated, events.TypeAppointmentStatusChanged}, pub.types())
}

func TestSetStatusFromScheduledAcceptsEveryValue(t *testing.T) {
	ctx := context.Background()
	for _, target := range Statuses {
		t.Run(string(target), func(t *testing.T) {
			svc, _, _ := newTestService()
			appt, err := svc.Create(ctx, validRequest())
			require.NoError(t, err)

			got, err := svc.SetStatus(ctx, appt.ID, string(target))
			require.NoError(t, err)
			assert.Equal(t, target, got.Status)
		})
	}
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newTestService()
	appt, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, appt.ID, "ARCHIVED")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	stored, _ := repo.Get(ctx, appt.ID)
	assert.Equal(t, StatusScheduled, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
	assert.Len(t, pub.events, 1)
}

func TestSetStatusSameStatusIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newTestService()
	appt, _ := svc.Create(ctx, validRequest())

	got, err := svc.SetStatus(ctx, appt.ID, "scheduled")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
	stored, _ := repo.Get(ctx, appt.ID)
	assert.Equal(t, int64(1), stored.Version)
	assert.Len(t, pub.events, 1)
}

func TestSetStatusUnknownID(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.SetStatus(context.Background(), "missing", "CONFIRMED")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRequiresCustomerAndDate(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newTestService()

	noCustomer := validRequest()
	noCustomer.CustomerID = "  "
	_, err := svc.Create(ctx, noCustomer)
	assert.ErrorIs(t, err, ErrMissingCustomer)

	noDate := validRequest()
	noDate.AppointmentDate = time.Time{}
	_, err = svc.Create(ctx, noDate)
	assert.ErrorIs(t, err, ErrMissingDate)

	all, _ := repo.List(ctx, Filter{})
	assert.Empty(t, all)
	assert.Empty(t, pub.events)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	cases := map[string]struct {
		mutate func(*CreateRequest)
		want   error
	}{
		"duration too short":  {func(r *CreateRequest) { r.Duration = 15 }, ErrInvalidDuration},
		"duration off step":   {func(r *CreateRequest) { r.Duration = 50 }, ErrInvalidDuration},
		"unknown status":      {func(r *CreateRequest) { r.Status = "LATE" }, ErrInvalidStatus},
		"negative total":      {func(r *CreateRequest) { r.TotalPriceCents = -1 }, ErrInvalidAmount},
		"deposit above total": {func(r *CreateRequest) { r.DepositAmountCents = 40000 }, ErrDepositExceeds},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	defaults := validRequest()
	defaults.Duration = 0
	defaults.Status = ""
	appt, err := svc.Create(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, DefaultDuration, appt.Duration)
	assert.Equal(t, StatusScheduled, appt.Status)
}

func TestCreateChecksCustomerExists(t *testing.T) {
	svc, _, _ := newTestService()
	svc.WithCustomers(staticCustomers{"c1": true})

	req := validRequest()
	req.CustomerID = "ghost"
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownCustomer)

	_, err = svc.Create(context.Background(), validRequest())
	assert.NoError(t, err)
}

func TestUpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	appt, _ := svc.Create(ctx, validRequest())

	stale := int64(1)
	first := UpdateRequest{CreateRequest: validRequest(), Version: &stale}
	first.Description = "first edit"
	updated, err := svc.Update(ctx, appt.ID, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	second := UpdateRequest{CreateRequest: validRequest(), Version: &stale}
	second.Description = "second edit"
	_, err = svc.Update(ctx, appt.ID, second)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateStatusUsesTransitionTable(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService()
	appt, _ := svc.Create(ctx, validRequest())
	_, err := svc.SetStatus(ctx, appt.ID, "CANCELLED")
	require.NoError(t, err)

	req := UpdateRequest{CreateRequest: validRequest()}
	req.Status = "CONFIRMED"
	_, err = svc.Update(ctx, appt.ID, req)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, pub.events, 2)
}

func TestUpdateWithoutStatusKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService()
	appt, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, appt.ID, "CONFIRMED")
	require.NoError(t, err)

	req := UpdateRequest{CreateRequest: validRequest()}
	req.Status = ""
	req.Duration = 180
	updated, err := svc.Update(ctx, appt.ID, req)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.Equal(t, 180, updated.Duration)
	assert.Equal(t, []string{events.TypeAppointmentCreated, events.TypeAppointmentStatusChanged}, pub.types())
}

func TestCreateWithoutStatusIsScheduled(t *testing.T) {
	svc, _, _ := newTestService()
	req := validRequest()
	req.Status = "  "
	appt, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, appt.Status)
}

func TestTransitionErrorNamesBothStatuses(t *testing.T) {
	err := transitionError(StatusCompleted, StatusScheduled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.EqualError(t, err, "cannot change status from COMPLETED to SCHEDULED")
}

func TestDispatchFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newTestService()
	pub.err = errors.New("outbox unavailable")

	appt, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, appt.ID, "CONFIRMED")
	require.NoError(t, err)

	stored, _ := repo.Get(ctx, appt.ID)
	assert.Equal(t, StatusConfirmed, stored.Status)
}

func TestMarkDepositPaid(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	appt, _ := svc.Create(ctx, validRequest())

	paid, err := svc.MarkDepositPaid(ctx, appt.ID, 7500)
	require.NoError(t, err)
	assert.True(t, paid.DepositPaid)
	assert.Equal(t, int64(7500), paid.DepositAmountCents)

	again, err := svc.MarkDepositPaid(ctx, appt.ID, 7500)
	require.NoError(t, err)
	assert.Equal(t, paid.Version, again.Version)
}

func TestDeletePublishesEvent(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService()
	appt, _ := svc.Create(ctx, validRequest())

	require.NoError(t, svc.Delete(ctx, appt.ID))
	assert.ErrorIs(t, svc.Delete(ctx, appt.ID), ErrNotFound)
	assert.Equal(t, events.TypeAppointmentDeleted, pub.types()[1])
}

func TestReconcileExternalCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	ext := ExternalUpdate{
		UID:         "cal-1",
		CustomerID:  "c1",
		ClientName:  "Ada",
		ClientEmail: "ADA@example.com",
		Start:       start,
		End:         start.Add(50 * time.Minute),
		Status:      StatusScheduled,
	}

	appt, created, err := svc.ReconcileExternal(ctx, ext)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 60, appt.Duration)
	require.NotNil(t, appt.ExternalUID)
	assert.Equal(t, "cal-1", *appt.ExternalUID)

	ext.Status = StatusConfirmed
	appt, created, err = svc.ReconcileExternal(ctx, ext)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, StatusConfirmed, appt.Status)
}

func TestReconcileExternalKeepsLocalTerminalStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	ext := ExternalUpdate{UID: "cal-2", CustomerID: "c1", ClientEmail: "a@b.c", Start: start, End: start.Add(time.Hour), Status: StatusConfirmed}

	appt, _, err := svc.ReconcileExternal(ctx, ext)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, appt.ID, "COMPLETED")
	require.NoError(t, err)

	ext.Status = StatusScheduled
	appt, _, err = svc.ReconcileExternal(ctx, ext)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, appt.Status)
}
