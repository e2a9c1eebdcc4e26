package studioclient

import (
	"context"
	"net/url"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
)

// ListFilter mirrors the admin list query parameters.
type ListFilter struct {
	Query  string
	Status string
	From   *time.Time
	To     *time.Time
}

func (f ListFilter) values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.From != nil {
		v.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		v.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	return v
}

func (c *Client) ListAppointments(ctx context.Context, filter ListFilter) ([]*appointments.Appointment, error) {
	var resp appointments.ListResponse
	if err := c.get(ctx, "/api/admin/appointments", filter.values(), &resp); err != nil {
		return nil, err
	}
	return resp.Appointments, nil
}

func (c *Client) GetAppointment(ctx context.Context, id string) (*appointments.Appointment, error) {
	var appt appointments.Appointment
	if err := c.get(ctx, "/api/admin/appointments/"+url.PathEscape(id), nil, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) CreateAppointment(ctx context.Context, req appointments.CreateRequest) (*appointments.Appointment, error) {
	var appt appointments.Appointment
	if err := c.send(ctx, "POST", "/api/admin/appointments", req, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// UpdateAppointment sends req with the caller's version. A stale version
// answers 409, see IsConflict.
func (c *Client) UpdateAppointment(ctx context.Context, id string, req appointments.UpdateRequest) (*appointments.Appointment, error) {
	var appt appointments.Appointment
	if err := c.send(ctx, "PUT", "/api/admin/appointments/"+url.PathEscape(id), req, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) SetAppointmentStatus(ctx context.Context, id, status string) (*appointments.Appointment, error) {
	var appt appointments.Appointment
	body := map[string]string{"status": status}
	if err := c.send(ctx, "POST", "/api/admin/appointments/"+url.PathEscape(id)+"/status", body, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	return c.send(ctx, "DELETE", "/api/admin/appointments/"+url.PathEscape(id), nil, nil)
}
