package calsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBookingStore persists bookings in external_bookings.
type PostgresBookingStore struct {
	db querier
}

func NewPostgresBookingStore(pool *pgxpool.Pool) *PostgresBookingStore {
	if pool == nil {
		panic("calsync: pgx pool required")
	}
	return &PostgresBookingStore{db: pool}
}

func newPostgresBookingStoreWithQuerier(db querier) *PostgresBookingStore {
	return &PostgresBookingStore{db: db}
}

const bookingColumns = `uid, title, attendee_name, attendee_email, attendee_phone,
	start_time, end_time, status, location, payment, custom_inputs,
	additional_notes, internal_notes, COALESCE(appointment_id::text, ''), synced_at`

func (s *PostgresBookingStore) Upsert(ctx context.Context, b *Booking) (bool, error) {
	payment, err := json.Marshal(b.Payment)
	if err != nil {
		return false, fmt.Errorf("calsync: encode payment: %w", err)
	}
	inputs, err := json.Marshal(b.CustomInputs)
	if err != nil {
		return false, fmt.Errorf("calsync: encode custom inputs: %w", err)
	}
	var appointmentID any
	if b.AppointmentID != "" {
		appointmentID = b.AppointmentID
	}

	var inserted bool
	err = s.db.QueryRow(ctx, `
		INSERT INTO external_bookings (
			uid, title, attendee_name, attendee_email, attendee_phone,
			start_time, end_time, status, location, payment, custom_inputs,
			additional_notes, appointment_id, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (uid) DO UPDATE SET
			title = EXCLUDED.title,
			attendee_name = EXCLUDED.attendee_name,
			attendee_email = EXCLUDED.attendee_email,
			attendee_phone = EXCLUDED.attendee_phone,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			location = EXCLUDED.location,
			payment = EXCLUDED.payment,
			custom_inputs = EXCLUDED.custom_inputs,
			additional_notes = EXCLUDED.additional_notes,
			appointment_id = COALESCE(EXCLUDED.appointment_id, external_bookings.appointment_id),
			synced_at = EXCLUDED.synced_at
		RETURNING (xmax = 0) AS inserted
	`,
		b.UID, b.Title, b.Attendee.Name, b.Attendee.Email, b.Attendee.Phone,
		b.StartTime, b.EndTime, string(b.Status), b.Location, payment, inputs,
		b.AdditionalNotes, appointmentID, b.SyncedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("calsync: upsert booking: %w", err)
	}
	return inserted, nil
}

func (s *PostgresBookingStore) Get(ctx context.Context, uid string) (*Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM external_bookings WHERE uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("calsync: get booking: %w", err)
	}
	return b, nil
}

func (s *PostgresBookingStore) List(ctx context.Context, filter BookingFilter) ([]*Booking, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM external_bookings WHERE $1 = '' OR status = $1
	`, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("calsync: count bookings: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+` FROM external_bookings
		WHERE $1 = '' OR status = $1
		ORDER BY start_time DESC, uid
		LIMIT $2 OFFSET $3
	`, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("calsync: list bookings: %w", err)
	}
	defer rows.Close()

	out := make([]*Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("calsync: scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (s *PostgresBookingStore) SetInternalNotes(ctx context.Context, uid, notes string) error {
	ct, err := s.db.Exec(ctx, `UPDATE external_bookings SET internal_notes = $2 WHERE uid = $1`, uid, notes)
	if err != nil {
		return fmt.Errorf("calsync: update notes: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b       Booking
		status  string
		payment []byte
		inputs  []byte
	)
	if err := row.Scan(
		&b.UID, &b.Title, &b.Attendee.Name, &b.Attendee.Email, &b.Attendee.Phone,
		&b.StartTime, &b.EndTime, &status, &b.Location, &payment, &inputs,
		&b.AdditionalNotes, &b.InternalNotes, &b.AppointmentID, &b.SyncedAt,
	); err != nil {
		return nil, err
	}
	b.Status = BookingStatus(status)
	if len(payment) > 0 && string(payment) != "null" {
		var p Payment
		if err := json.Unmarshal(payment, &p); err != nil {
			return nil, err
		}
		b.Payment = &p
	}
	if len(inputs) > 0 && string(inputs) != "null" {
		if err := json.Unmarshal(inputs, &b.CustomInputs); err != nil {
			return nil, err
		}
	}
	return &b, nil
}
