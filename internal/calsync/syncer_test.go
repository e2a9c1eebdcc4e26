package calsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/customers"
)

type fakeAPI struct {
	mu      sync.Mutex
	records []json.RawMessage
	listErr error
	pingErr error
	calls   []ListParams
	actions []string
	blockCh chan struct{}
}

func (f *fakeAPI) ListBookings(ctx context.Context, params ListParams) (*Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	block := f.blockCh
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	start := params.Skip
	if start > len(f.records) {
		start = len(f.records)
	}
	end := start + params.Take
	if end > len(f.records) {
		end = len(f.records)
	}
	return &Page{Records: f.records[start:end], HasNextPage: end < len(f.records)}, nil
}

func (f *fakeAPI) Confirm(ctx context.Context, uid string) error {
	f.actions = append(f.actions, "confirm:"+uid)
	return nil
}

func (f *fakeAPI) Decline(ctx context.Context, uid, reason string) error {
	f.actions = append(f.actions, "decline:"+uid+":"+reason)
	return nil
}

func (f *fakeAPI) Cancel(ctx context.Context, uid, reason string) error {
	f.actions = append(f.actions, "cancel:"+uid+":"+reason)
	return nil
}

func (f *fakeAPI) Ping(ctx context.Context) error { return f.pingErr }

func bookingJSON(uid, status string, start time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"uid": %q,
		"title": "Tattoo consult",
		"start": %q,
		"end": %q,
		"status": %q,
		"attendees": [{"name": "Ada Lovelace", "email": "ada@example.com"}],
		"bookingFieldsResponses": {"placement": "forearm", "email": "ada@example.com"}
	}`, uid, start.Format(time.RFC3339), start.Add(90*time.Minute).Format(time.RFC3339), status))
}

type harness struct {
	api      *fakeAPI
	syncer   *Syncer
	appts    *appointments.Service
	apptRepo *appointments.InMemoryRepository
	store    *MemoryBookingStore
	state    *MemoryStateStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeAPI{}
	apptRepo := appointments.NewInMemoryRepository()
	appts := appointments.NewService(apptRepo, nil)
	custs := customers.NewService(customers.NewInMemoryRepository(), nil)
	store := NewMemoryBookingStore()
	state := NewMemoryStateStore()
	return &harness{
		api:      api,
		syncer:   NewSyncer(api, store, state, appts, custs, nil),
		appts:    appts,
		apptRepo: apptRepo,
		store:    store,
		state:    state,
	}
}

func TestSyncBookingsCountsMalformedRecords(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	h.api.records = []json.RawMessage{
		bookingJSON("b1", "accepted", start),
		bookingJSON("b2", "pending", start.Add(24*time.Hour)),
		json.RawMessage(`{"uid": "b3", "start": "not-a-date", "end": "2025-06-01T15:00:00Z", "status": "accepted", "attendees": [{"email": "x@example.com"}]}`),
		bookingJSON("b4", "cancelled", start.Add(48*time.Hour)),
		json.RawMessage(`{"uid": "b5", "start": "2025-06-01T14:00:00Z", "end": "2025-06-01T15:00:00Z", "status": "maybe", "attendees": [{"email": "x@example.com"}]}`),
		json.RawMessage(`{"uid": "b6", "start": "2025-06-01T14:00:00Z", "end": "2025-06-01T15:00:00Z", "status": "pending", "attendees": []}`),
		json.RawMessage(`"garbage"`),
	}

	result, err := h.syncer.SyncBookings(context.Background(), SyncOptions{BatchSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Processed)
	assert.Equal(t, 4, result.Errors)
	assert.Equal(t, 3, result.Created+result.Updated)
	assert.Equal(t, 3, result.Created)
	require.Len(t, result.RecordErrors, 4)
	assert.Equal(t, "b3", result.RecordErrors[0].UID)
	assert.Len(t, h.api.calls, 3)

	appt, err := h.apptRepo.GetByExternalUID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusConfirmed, appt.Status)
	assert.Equal(t, 90, appt.Duration)
	assert.Contains(t, appt.Description, "placement: forearm")

	cancelled, err := h.apptRepo.GetByExternalUID(context.Background(), "b4")
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCancelled, cancelled.Status)

	b, err := h.store.Get(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, appt.ID, b.AppointmentID)

	again, err := h.syncer.SyncBookings(context.Background(), SyncOptions{ForceFullSync: true})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 3, again.Updated)
}

func TestSyncBookingsIncrementalCursor(t *testing.T) {
	h := newHarness(t)
	first := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	h.syncer.now = func() time.Time { return first }

	_, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
	require.NoError(t, err)
	require.Len(t, h.api.calls, 1)
	assert.True(t, h.api.calls[0].AfterUpdatedAt.IsZero())
	assert.Equal(t, DefaultBatchSize, h.api.calls[0].Take)

	_, err = h.syncer.SyncBookings(context.Background(), SyncOptions{BatchSize: 500, SyncType: SyncUpcoming})
	require.NoError(t, err)
	assert.Equal(t, first, h.api.calls[1].AfterUpdatedAt)
	assert.Equal(t, MaxBatchSize, h.api.calls[1].Take)
	assert.Equal(t, SyncUpcoming, h.api.calls[1].Status)

	_, err = h.syncer.SyncBookings(context.Background(), SyncOptions{ForceFullSync: true})
	require.NoError(t, err)
	assert.True(t, h.api.calls[2].AfterUpdatedAt.IsZero())
}

type flakyResolver struct {
	inner CustomerResolver
	fails int
}

func (f *flakyResolver) FindOrCreateByEmail(ctx context.Context, in customers.Input) (*customers.Customer, bool, error) {
	if f.fails > 0 {
		f.fails--
		return nil, false, errors.New("connection reset")
	}
	return f.inner.FindOrCreateByEmail(ctx, in)
}

func TestSyncBookingsKeepsCursorAfterRetryableError(t *testing.T) {
	h := newHarness(t)
	resolver := &flakyResolver{inner: customers.NewService(customers.NewInMemoryRepository(), nil), fails: 1}
	h.syncer = NewSyncer(h.api, h.store, h.state, h.appts, resolver, nil)
	first := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	h.syncer.now = func() time.Time { return first }
	h.api.records = []json.RawMessage{bookingJSON("b1", "accepted", first.Add(48*time.Hour))}

	result, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Errors)
	assert.False(t, result.CursorAdvanced)
	last, _ := h.state.LastSync(context.Background())
	assert.True(t, last.IsZero())

	second := first.Add(time.Hour)
	h.syncer.now = func() time.Time { return second }
	result, err = h.syncer.SyncBookings(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.True(t, h.api.calls[1].AfterUpdatedAt.IsZero())
	assert.Equal(t, 1, result.Created)
	assert.True(t, result.CursorAdvanced)
	last, _ = h.state.LastSync(context.Background())
	assert.Equal(t, second, last)
}

func TestSyncBookingsMalformedRecordsStillAdvanceCursor(t *testing.T) {
	h := newHarness(t)
	first := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	h.syncer.now = func() time.Time { return first }
	h.api.records = []json.RawMessage{json.RawMessage(`"garbage"`)}

	result, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
	assert.True(t, result.CursorAdvanced)
	last, _ := h.state.LastSync(context.Background())
	assert.Equal(t, first, last)
}

func TestSyncBookingsPageLimitKeepsCursor(t *testing.T) {
	h := newHarness(t)
	h.syncer.pageLimit = 1
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	h.api.records = []json.RawMessage{
		bookingJSON("b1", "pending", start),
		bookingJSON("b2", "pending", start.Add(24*time.Hour)),
	}

	result, err := h.syncer.SyncBookings(context.Background(), SyncOptions{BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.False(t, result.CursorAdvanced)
	last, _ := h.state.LastSync(context.Background())
	assert.True(t, last.IsZero())
}

func TestSyncBookingsTopLevelFailures(t *testing.T) {
	h := newHarness(t)
	h.api.listErr = errors.New("401 unauthorized")
	_, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
	require.Error(t, err)
	last, _ := h.state.LastSync(context.Background())
	assert.True(t, last.IsZero())

	_, err = h.syncer.SyncBookings(context.Background(), SyncOptions{SyncType: "weekly"})
	assert.ErrorIs(t, err, ErrInvalidSyncType)

	unconfigured := NewSyncer(nil, h.store, h.state, h.appts, customers.NewService(customers.NewInMemoryRepository(), nil), nil)
	_, err = unconfigured.SyncBookings(context.Background(), SyncOptions{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestSyncBookingsSingleRunAtATime(t *testing.T) {
	h := newHarness(t)
	h.api.blockCh = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
		done <- err
	}()
	require.Eventually(t, func() bool {
		h.api.mu.Lock()
		defer h.api.mu.Unlock()
		return len(h.api.calls) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(h.api.blockCh)
	require.NoError(t, <-done)
}

func TestSyncKeepsLocalTerminalStatus(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	h.api.records = []json.RawMessage{bookingJSON("b1", "accepted", start)}
	_, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
	require.NoError(t, err)

	appt, err := h.apptRepo.GetByExternalUID(context.Background(), "b1")
	require.NoError(t, err)
	_, err = h.appts.SetStatus(context.Background(), appt.ID, "COMPLETED")
	require.NoError(t, err)

	h.api.records = []json.RawMessage{bookingJSON("b1", "cancelled", start)}
	result, err := h.syncer.SyncBookings(context.Background(), SyncOptions{ForceFullSync: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Errors)

	appt, err = h.apptRepo.GetByExternalUID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCompleted, appt.Status)
}

func TestProxiedTransitions(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	h.api.records = []json.RawMessage{bookingJSON("b1", "pending", start), bookingJSON("b2", "pending", start)}
	_, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
	require.NoError(t, err)

	b, err := h.syncer.Confirm(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, BookingAccepted, b.Status)
	appt, err := h.apptRepo.GetByExternalUID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusConfirmed, appt.Status)

	_, err = h.syncer.Reject(context.Background(), "b1", "double booked")
	assert.ErrorIs(t, err, ErrTransitionState)

	_, err = h.syncer.Cancel(context.Background(), "b1", "artist sick")
	require.NoError(t, err)
	_, err = h.syncer.Reject(context.Background(), "b2", "not our style")
	require.NoError(t, err)
	assert.Equal(t, []string{"confirm:b1", "cancel:b1:artist sick", "decline:b2:not our style"}, h.api.actions)

	_, err = h.syncer.Confirm(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestAppendInternalNoteSurvivesSync(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	h.api.records = []json.RawMessage{bookingJSON("b1", "pending", start)}
	_, err := h.syncer.SyncBookings(context.Background(), SyncOptions{})
	require.NoError(t, err)

	h.syncer.now = func() time.Time { return start }
	_, err = h.syncer.AppendInternalNote(context.Background(), "b1", "  ")
	assert.ErrorIs(t, err, ErrEmptyNote)
	_, err = h.syncer.AppendInternalNote(context.Background(), "b1", "wants color")
	require.NoError(t, err)
	b, err := h.syncer.AppendInternalNote(context.Background(), "b1", "deposit by phone")
	require.NoError(t, err)
	assert.Equal(t, "[2025-06-01 14:00 UTC] system: wants color\n[2025-06-01 14:00 UTC] system: deposit by phone", b.InternalNotes)

	_, err = h.syncer.SyncBookings(context.Background(), SyncOptions{ForceFullSync: true})
	require.NoError(t, err)
	stored, err := h.store.Get(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, b.InternalNotes, stored.InternalNotes)
}

func TestHealthStatus(t *testing.T) {
	h := newHarness(t)
	status := h.syncer.HealthStatus(context.Background())
	assert.True(t, status.Configured)
	assert.True(t, status.Reachable)
	assert.Nil(t, status.LastSync)

	h.api.pingErr = &APIError{Status: 401, Body: "bad key"}
	status = h.syncer.HealthStatus(context.Background())
	assert.False(t, status.Reachable)
	assert.Equal(t, "calendar API rejected the credentials", status.Message)

	unconfigured := NewSyncer(nil, h.store, h.state, h.appts, customers.NewService(customers.NewInMemoryRepository(), nil), nil)
	status = unconfigured.HealthStatus(context.Background())
	assert.False(t, status.Configured)
}
