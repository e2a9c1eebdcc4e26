package appointments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for appointment storage.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	Get(ctx context.Context, id string) (*Appointment, error)
	GetByExternalUID(ctx context.Context, uid string) (*Appointment, error)
	List(ctx context.Context, filter Filter) ([]*Appointment, error)
	// Update persists appt when the stored version equals expectedVersion and
	// bumps appt.Version.
	Update(ctx context.Context, appt *Appointment, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is a Repository backed by a map.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Appointment
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*Appointment)}
}

func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if appt.ExternalUID != nil {
		for _, existing := range r.items {
			if existing.ExternalUID != nil && *existing.ExternalUID == *appt.ExternalUID {
				return ErrDuplicateExternal
			}
		}
	}
	now := time.Now().UTC()
	appt.Version = 1
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.items[appt.ID] = appt.clone()
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return appt.clone(), nil
}

func (r *InMemoryRepository) GetByExternalUID(ctx context.Context, uid string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, appt := range r.items {
		if appt.ExternalUID != nil && *appt.ExternalUID == uid {
			return appt.clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) List(ctx context.Context, filter Filter) ([]*Appointment, error) {
	r.mu.RLock()
	out := make([]*Appointment, 0, len(r.items))
	for _, appt := range r.items {
		if filter.Matches(appt) {
			out = append(out, appt.clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].AppointmentDate.Before(out[j].AppointmentDate)
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, appt *Appointment, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[appt.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	appt.Version = expectedVersion + 1
	appt.CreatedAt = current.CreatedAt
	appt.UpdatedAt = time.Now().UTC()
	r.items[appt.ID] = appt.clone()
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func paginate(list []*Appointment, offset, limit int) []*Appointment {
	if offset > 0 {
		if offset >= len(list) {
			return []*Appointment{}
		}
		list = list[offset:]
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}
