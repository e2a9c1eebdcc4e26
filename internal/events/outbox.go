package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Outbox entry states.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusDead      = "dead"
)

// ClaimLease is how long a fetched entry stays hidden from other workers.
// MarkDelivered or ScheduleRetry normally end the lease early; an entry whose
// worker died becomes due again once it expires.
const ClaimLease = 5 * time.Minute

// ErrEntryNotFound is returned when an outbox entry does not exist or is not in the expected state.
var ErrEntryNotFound = errors.New("events: outbox entry not found")

// OutboxEntry represents a stored event awaiting delivery.
type OutboxEntry struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Event rebuilds the domain event carried by the entry.
func (e OutboxEntry) Event() Event {
	return Event{
		ID:          e.ID,
		Type:        e.Type,
		AggregateID: e.AggregateID,
		OccurredAt:  e.CreatedAt,
		Payload:     e.Payload,
	}
}

// Outbox persists events for reliable delivery.
type Outbox interface {
	Insert(ctx context.Context, evt Event) error
	// FetchDue claims up to limit due entries for ClaimLease. Concurrent
	// callers never receive the same entry within one lease.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
	ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string) error
	MarkDead(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error
	ListDead(ctx context.Context, limit int) ([]OutboxEntry, error)
	Requeue(ctx context.Context, id uuid.UUID) error
}

type outboxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresOutbox stores entries in the notification_outbox table.
type PostgresOutbox struct {
	pool outboxQuerier
}

func NewPostgresOutbox(pool *pgxpool.Pool) *PostgresOutbox {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &PostgresOutbox{pool: pool}
}

func newPostgresOutboxWithExec(exec outboxQuerier) *PostgresOutbox {
	if exec == nil {
		panic("events: exec required")
	}
	return &PostgresOutbox{pool: exec}
}

func (s *PostgresOutbox) Insert(ctx context.Context, evt Event) error {
	query := `
		INSERT INTO notification_outbox (id, type, aggregate_id, payload, created_at, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`
	if _, err := s.pool.Exec(ctx, query, evt.ID, evt.Type, evt.AggregateID, []byte(evt.Payload), evt.OccurredAt); err != nil {
		return fmt.Errorf("events: insert outbox: %w", err)
	}
	return nil
}

const outboxColumns = `id, type, aggregate_id, payload, status, attempts, next_attempt_at, COALESCE(last_error, ''), created_at`

func (s *PostgresOutbox) FetchDue(ctx context.Context, now time.Time, limit int) ([]OutboxEntry, error) {
	query := `
		UPDATE notification_outbox
		SET next_attempt_at = $3
		WHERE id IN (
			SELECT id
			FROM notification_outbox
			WHERE status = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at, created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns
	entries, err := s.queryEntries(ctx, query, now, limit, now.Add(ClaimLease))
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	return entries, nil
}

func (s *PostgresOutbox) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE notification_outbox
		SET status = 'delivered', delivered_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("events: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PostgresOutbox) ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string) error {
	query := `
		UPDATE notification_outbox
		SET attempts = $2, next_attempt_at = $3, last_error = $4
		WHERE id = $1 AND status = 'pending'
	`
	if _, err := s.pool.Exec(ctx, query, id, attempts, next, lastErr); err != nil {
		return fmt.Errorf("events: schedule retry: %w", err)
	}
	return nil
}

func (s *PostgresOutbox) MarkDead(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	query := `
		UPDATE notification_outbox
		SET status = 'dead', attempts = $2, last_error = $3
		WHERE id = $1 AND status = 'pending'
	`
	if _, err := s.pool.Exec(ctx, query, id, attempts, lastErr); err != nil {
		return fmt.Errorf("events: mark dead: %w", err)
	}
	return nil
}

func (s *PostgresOutbox) ListDead(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM notification_outbox
		WHERE status = 'dead'
		ORDER BY created_at DESC
		LIMIT $1
	`
	return s.queryEntries(ctx, query, limit)
}

// Requeue moves a dead entry back to pending with a fresh attempt budget.
func (s *PostgresOutbox) Requeue(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notification_outbox
		SET status = 'pending', attempts = 0, next_attempt_at = now(), last_error = NULL
		WHERE id = $1 AND status = 'dead'
	`
	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("events: requeue: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *PostgresOutbox) queryEntries(ctx context.Context, query string, args ...any) ([]OutboxEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("events: query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.Type, &entry.AggregateID, &payload, &entry.Status,
			&entry.Attempts, &entry.NextAttemptAt, &entry.LastError, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("events: scan outbox: %w", err)
		}
		entry.Payload = append([]byte(nil), payload...)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
