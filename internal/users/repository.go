package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines user storage.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is a Repository backed by a map.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]User
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]User)}
}

func (r *InMemoryRepository) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.items[u.ID] = *u
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*User, error) {
	r.mu.RLock()
	out := make([]*User, 0, len(r.items))
	for _, u := range r.items {
		u := u
		out = append(out, &u)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range r.items {
		if id != u.ID && existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	u.CreatedAt = current.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	r.items[u.ID] = *u
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
