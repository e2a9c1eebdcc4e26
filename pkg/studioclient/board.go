package studioclient

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/pkg/optimistic"
)

// AppointmentBoard keeps a local appointment list in step with the server,
// showing edits before the server confirms them.
type AppointmentBoard struct {
	client *Client
	list   *optimistic.List[*appointments.Appointment]
	filter ListFilter
	seq    atomic.Int64
}

func NewAppointmentBoard(client *Client, filter ListFilter) *AppointmentBoard {
	return &AppointmentBoard{
		client: client,
		list:   optimistic.New(func(a *appointments.Appointment) string { return a.ID }),
		filter: filter,
	}
}

// Refresh refetches the list.
func (b *AppointmentBoard) Refresh(ctx context.Context) error {
	list, err := b.client.ListAppointments(ctx, b.filter)
	if err != nil {
		return err
	}
	b.list.Replace(list)
	return nil
}

// Items returns the current view, pending edits included.
func (b *AppointmentBoard) Items() []*appointments.Appointment {
	return b.list.Snapshot()
}

// Pending reports whether an edit on id is still waiting for the server.
func (b *AppointmentBoard) Pending(id string) bool {
	return b.list.Pending(id)
}

// Create shows a draft under a temporary id until the server answers.
func (b *AppointmentBoard) Create(ctx context.Context, req appointments.CreateRequest) (*appointments.Appointment, error) {
	draft := &appointments.Appointment{
		ID:                 "tmp-" + strconv.FormatInt(b.seq.Add(1), 10),
		CustomerID:         req.CustomerID,
		ClientName:         req.ClientName,
		ClientEmail:        req.ClientEmail,
		AppointmentDate:    req.AppointmentDate,
		Duration:           req.Duration,
		Status:             appointments.Status(req.Status),
		DepositAmountCents: req.DepositAmountCents,
		TotalPriceCents:    req.TotalPriceCents,
		TattooStyle:        req.TattooStyle,
		Description:        req.Description,
	}
	if draft.Status == "" {
		draft.Status = appointments.StatusScheduled
	}
	return b.list.Create(ctx, draft, func(ctx context.Context) (*appointments.Appointment, error) {
		return b.client.CreateAppointment(ctx, req)
	})
}

// SetStatus shows the new status right away.
func (b *AppointmentBoard) SetStatus(ctx context.Context, id string, status appointments.Status) (*appointments.Appointment, error) {
	patch := func(a *appointments.Appointment) *appointments.Appointment {
		cp := *a
		cp.Status = status
		return &cp
	}
	return b.list.Update(ctx, id, patch, func(ctx context.Context, _ *appointments.Appointment) (*appointments.Appointment, error) {
		return b.client.SetAppointmentStatus(ctx, id, string(status))
	})
}

// Update sends the edited fields with the version the board last saw.
func (b *AppointmentBoard) Update(ctx context.Context, id string, req appointments.CreateRequest) (*appointments.Appointment, error) {
	var version int64
	patch := func(a *appointments.Appointment) *appointments.Appointment {
		version = a.Version
		cp := *a
		cp.ClientName = req.ClientName
		cp.ClientEmail = req.ClientEmail
		cp.AppointmentDate = req.AppointmentDate
		cp.Duration = req.Duration
		cp.TattooStyle = req.TattooStyle
		cp.Description = req.Description
		cp.DepositAmountCents = req.DepositAmountCents
		cp.TotalPriceCents = req.TotalPriceCents
		return &cp
	}
	return b.list.Update(ctx, id, patch, func(ctx context.Context, _ *appointments.Appointment) (*appointments.Appointment, error) {
		return b.client.UpdateAppointment(ctx, id, appointments.UpdateRequest{CreateRequest: req, Version: &version})
	})
}

func (b *AppointmentBoard) Delete(ctx context.Context, id string) error {
	return b.list.Delete(ctx, id, func(ctx context.Context) error {
		return b.client.DeleteAppointment(ctx, id)
	})
}
