package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryOutbox is an in-process Outbox for development and tests.
type MemoryOutbox struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*OutboxEntry
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{entries: make(map[uuid.UUID]*OutboxEntry)}
}

func (m *MemoryOutbox) Insert(ctx context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[evt.ID] = &OutboxEntry{
		ID:            evt.ID,
		Type:          evt.Type,
		AggregateID:   evt.AggregateID,
		Payload:       append([]byte(nil), evt.Payload...),
		Status:        StatusPending,
		NextAttemptAt: evt.OccurredAt,
		CreatedAt:     evt.OccurredAt,
	}
	return nil
}

func (m *MemoryOutbox) FetchDue(ctx context.Context, now time.Time, limit int) ([]OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OutboxEntry
	for _, e := range m.entries {
		if e.Status == StatusPending && !e.NextAttemptAt.After(now) {
			out = append(out, *e)
		}
	}
	sortEntries(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	lease := now.Add(ClaimLease)
	for i := range out {
		m.entries[out[i].ID].NextAttemptAt = lease
		out[i].NextAttemptAt = lease
	}
	return out, nil
}

func (m *MemoryOutbox) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Status != StatusPending {
		return false, nil
	}
	e.Status = StatusDelivered
	return true, nil
}

func (m *MemoryOutbox) ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok && e.Status == StatusPending {
		e.Attempts = attempts
		e.NextAttemptAt = next
		e.LastError = lastErr
	}
	return nil
}

func (m *MemoryOutbox) MarkDead(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok && e.Status == StatusPending {
		e.Status = StatusDead
		e.Attempts = attempts
		e.LastError = lastErr
	}
	return nil
}

func (m *MemoryOutbox) ListDead(ctx context.Context, limit int) ([]OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OutboxEntry
	for _, e := range m.entries {
		if e.Status == StatusDead {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryOutbox) Requeue(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Status != StatusDead {
		return ErrEntryNotFound
	}
	e.Status = StatusPending
	e.Attempts = 0
	e.LastError = ""
	e.NextAttemptAt = time.Now().UTC()
	return nil
}

// Entry returns a copy of a stored entry.
func (m *MemoryOutbox) Entry(id uuid.UUID) (OutboxEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return OutboxEntry{}, false
	}
	return *e, true
}

func sortEntries(entries []OutboxEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].NextAttemptAt.Equal(entries[j].NextAttemptAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].NextAttemptAt.Before(entries[j].NextAttemptAt)
	})
}
