package studioclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/wolfman30/inkstudio-platform/internal/analytics"
	"github.com/wolfman30/inkstudio-platform/internal/calsync"
	"github.com/wolfman30/inkstudio-platform/internal/events"
)

// SyncBookings triggers a calendar sync. It is not retried: the server
// holds a lock and a second call while one runs answers 409.
func (c *Client) SyncBookings(ctx context.Context, opts calsync.SyncOptions) (*calsync.SyncResult, error) {
	var out calsync.SyncResult
	if err := c.send(ctx, "POST", "/api/admin/bookings/sync", opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CalendarHealth(ctx context.Context) (*calsync.HealthStatus, error) {
	var out calsync.HealthStatus
	if err := c.get(ctx, "/api/admin/bookings/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeadNotifications(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	var out struct {
		Notifications []events.OutboxEntry `json:"notifications"`
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if err := c.get(ctx, "/api/admin/notifications/dead", q, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *Client) RequeueNotification(ctx context.Context, id string) error {
	return c.send(ctx, "POST", "/api/admin/notifications/"+url.PathEscape(id)+"/requeue", nil, nil)
}

func (c *Client) Summary(ctx context.Context) (*analytics.Summary, error) {
	var out analytics.Summary
	if err := c.get(ctx, "/api/admin/analytics/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
