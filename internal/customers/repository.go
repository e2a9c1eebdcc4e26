package customers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines customer storage.
type Repository interface {
	Create(ctx context.Context, in Input) (*Customer, error)
	Get(ctx context.Context, id string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	List(ctx context.Context, filter ListFilter) ([]*Customer, int, error)
	Update(ctx context.Context, id string, in Input) (*Customer, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is a Repository backed by a map.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Customer
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*Customer)}
}

func (r *InMemoryRepository) Create(ctx context.Context, in Input) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(in.Email, "") {
		return nil, ErrDuplicateEmail
	}
	now := time.Now().UTC()
	c := &Customer{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.items[c.ID] = c
	cp := *c
	return &cp, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Customer, int, error) {
	r.mu.RLock()
	var all []*Customer
	for _, c := range r.items {
		if filter.matches(c) {
			cp := *c
			all = append(all, &cp)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name == all[j].Name {
			return all[i].ID < all[j].ID
		}
		return all[i].Name < all[j].Name
	})
	total := len(all)
	if filter.Offset >= total {
		return []*Customer{}, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, in Input) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.emailTaken(in.Email, id) {
		return nil, ErrDuplicateEmail
	}
	c.Name, c.Email, c.Phone, c.Notes = in.Name, in.Email, in.Phone, in.Notes
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
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

func (r *InMemoryRepository) emailTaken(email, exceptID string) bool {
	for id, c := range r.items {
		if id != exceptID && c.Email == email {
			return true
		}
	}
	return false
}
