package contacts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for contact storage.
type Repository interface {
	Create(ctx context.Context, req CreateRequest) (*Contact, error)
	Get(ctx context.Context, id string) (*Contact, error)
	List(ctx context.Context, limit, offset int) ([]*Contact, int, error)
	MarkReplied(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository keeps contacts in memory for tests and local runs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	contacts map[string]*Contact
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{contacts: make(map[string]*Contact)}
}

func (r *InMemoryRepository) Create(ctx context.Context, req CreateRequest) (*Contact, error) {
	c := &Contact{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Subject:   req.Subject,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.contacts[c.ID] = c
	r.mu.Unlock()
	cp := *c
	return &cp, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// List returns newest first.
func (r *InMemoryRepository) List(ctx context.Context, limit, offset int) ([]*Contact, int, error) {
	r.mu.RLock()
	all := make([]*Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		cp := *c
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	if offset >= total {
		return []*Contact{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (r *InMemoryRepository) MarkReplied(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return ErrNotFound
	}
	c.RepliedAt = &at
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(r.contacts, id)
	return nil
}
