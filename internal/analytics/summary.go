package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Summary is the admin dashboard overview.
type Summary struct {
	GeneratedAt       time.Time      `json:"generated_at"`
	AppointmentsTotal int            `json:"appointments_total"`
	ByStatus          map[string]int `json:"by_status"`
	Upcoming          int            `json:"upcoming"`
	ThisWeek          int            `json:"this_week"`
	DepositsCollected int64          `json:"deposits_collected_cents"`
	CompletedRevenue  int64          `json:"completed_revenue_cents"`
	Customers         int            `json:"customers"`
	UnrepliedContacts int            `json:"unreplied_contacts"`
	DeadNotifications int            `json:"dead_notifications"`
}

// Reporter computes dashboard figures from the relational store.
type Reporter struct {
	db  *sql.DB
	now func() time.Time
}

func NewReporter(db *sql.DB) *Reporter {
	if db == nil {
		panic("analytics: sql db required")
	}
	return &Reporter{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Reporter) Summary(ctx context.Context) (*Summary, error) {
	now := r.now()
	weekEnd := now.AddDate(0, 0, 7)
	out := &Summary{GeneratedAt: now, ByStatus: map[string]int{}}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("analytics: status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("analytics: scan status count: %w", err)
		}
		out.ByStatus[status] = n
		out.AppointmentsTotal += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: status counts: %w", err)
	}

	scalars := []struct {
		name  string
		query string
		args  []any
		dest  any
	}{
		{"upcoming", `SELECT COUNT(*) FROM appointments WHERE appointment_date > $1 AND status IN ('SCHEDULED', 'CONFIRMED')`, []any{now}, &out.Upcoming},
		{"this week", `SELECT COUNT(*) FROM appointments WHERE appointment_date >= $1 AND appointment_date < $2 AND status IN ('SCHEDULED', 'CONFIRMED')`, []any{now, weekEnd}, &out.ThisWeek},
		{"deposits", `SELECT COALESCE(SUM(deposit_amount_cents), 0) FROM appointments WHERE deposit_paid`, nil, &out.DepositsCollected},
		{"revenue", `SELECT COALESCE(SUM(total_price_cents), 0) FROM appointments WHERE status = 'COMPLETED'`, nil, &out.CompletedRevenue},
		{"customers", `SELECT COUNT(*) FROM customers`, nil, &out.Customers},
		{"contacts", `SELECT COUNT(*) FROM contacts WHERE replied_at IS NULL`, nil, &out.UnrepliedContacts},
		{"dead letters", `SELECT COUNT(*) FROM notification_outbox WHERE status = 'dead'`, nil, &out.DeadNotifications},
	}
	for _, q := range scalars {
		if err := r.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("analytics: %s: %w", q.name, err)
		}
	}
	return out, nil
}
