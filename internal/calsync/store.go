package calsync

import (
	"context"
	"sort"
	"sync"
)

// BookingFilter narrows booking listings.
type BookingFilter struct {
	Status BookingStatus
	Limit  int
	Offset int
}

// BookingStore persists local copies of external bookings.
type BookingStore interface {
	// Upsert stores b by UID and reports whether it was inserted. Internal
	// notes are never overwritten by an upsert.
	Upsert(ctx context.Context, b *Booking) (bool, error)
	Get(ctx context.Context, uid string) (*Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]*Booking, int, error)
	SetInternalNotes(ctx context.Context, uid, notes string) error
}

// MemoryBookingStore is an in-memory BookingStore.
type MemoryBookingStore struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
}

func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{bookings: make(map[string]*Booking)}
}

func copyBooking(b *Booking) *Booking {
	cp := *b
	if b.Payment != nil {
		p := *b.Payment
		cp.Payment = &p
	}
	cp.CustomInputs = append([]CustomInput(nil), b.CustomInputs...)
	return &cp
}

func (s *MemoryBookingStore) Upsert(ctx context.Context, b *Booking) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.bookings[b.UID]
	cp := copyBooking(b)
	if ok {
		cp.InternalNotes = existing.InternalNotes
		if cp.AppointmentID == "" {
			cp.AppointmentID = existing.AppointmentID
		}
	}
	s.bookings[b.UID] = cp
	return !ok, nil
}

func (s *MemoryBookingStore) Get(ctx context.Context, uid string) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[uid]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return copyBooking(b), nil
}

func (s *MemoryBookingStore) List(ctx context.Context, filter BookingFilter) ([]*Booking, int, error) {
	s.mu.RLock()
	out := make([]*Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, copyBooking(b))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].UID < out[j].UID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	total := len(out)
	if filter.Offset >= total {
		return []*Booking{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return out[filter.Offset:end], total, nil
}

func (s *MemoryBookingStore) SetInternalNotes(ctx context.Context, uid, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[uid]
	if !ok {
		return ErrBookingNotFound
	}
	b.InternalNotes = notes
	return nil
}
