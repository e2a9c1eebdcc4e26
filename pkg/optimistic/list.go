// Package optimistic applies list mutations locally before the server
// confirms them and rolls them back when it does not.
package optimistic

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrMutationInFlight is returned when another mutation on the same key
	// has not finished yet.
	ErrMutationInFlight = errors.New("optimistic: mutation already in flight")
	ErrNotFound         = errors.New("optimistic: item not found")
	ErrEmptyKey         = errors.New("optimistic: item key is empty")
)

// List is an ordered collection of T keyed by Key. It is safe for
// concurrent use. Commit functions run without the lock held.
type List[T any] struct {
	mu       sync.Mutex
	items    []T
	key      func(T) string
	inflight map[string]struct{}
}

// New builds a list seeded with items.
func New[T any](key func(T) string, items ...T) *List[T] {
	return &List[T]{
		items:    append([]T(nil), items...),
		key:      key,
		inflight: make(map[string]struct{}),
	}
}

// Snapshot returns a copy of the current items.
func (l *List[T]) Snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Replace swaps in a freshly fetched list. Mutations in flight still settle
// against whatever list is current when their commit returns.
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]T(nil), items...)
}

// Pending reports whether a mutation on key is in flight.
func (l *List[T]) Pending(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.inflight[key]
	return ok
}

// Create appends draft right away, keyed by its temporary id, then calls
// commit. On success the draft is replaced in place by the server entity and
// any other copy of that entity is dropped. On failure the draft is removed.
func (l *List[T]) Create(ctx context.Context, draft T, commit func(context.Context) (T, error)) (T, error) {
	var zero T
	tempKey := l.key(draft)
	if tempKey == "" {
		return zero, ErrEmptyKey
	}
	l.mu.Lock()
	if err := l.beginLocked(tempKey); err != nil {
		l.mu.Unlock()
		return zero, err
	}
	l.items = append(l.items, draft)
	l.mu.Unlock()

	saved, err := commit(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, tempKey)
	idx := l.indexLocked(tempKey)
	if err != nil {
		if idx >= 0 {
			l.removeLocked(idx)
		}
		return zero, err
	}

	serverKey := l.key(saved)
	for i := len(l.items) - 1; i >= 0; i-- {
		if i != idx && l.key(l.items[i]) == serverKey {
			l.removeLocked(i)
			if i < idx {
				idx--
			}
		}
	}
	if idx >= 0 {
		l.items[idx] = saved
	} else {
		l.items = append(l.items, saved)
	}
	return saved, nil
}

// Update applies patch to the item with key right away and calls commit with
// the patched value. patch must not modify its argument in place. On failure
// the previous value is restored where it was.
func (l *List[T]) Update(ctx context.Context, key string, patch func(T) T, commit func(context.Context, T) (T, error)) (T, error) {
	var zero T
	l.mu.Lock()
	idx := l.indexLocked(key)
	if idx < 0 {
		l.mu.Unlock()
		return zero, ErrNotFound
	}
	if err := l.beginLocked(key); err != nil {
		l.mu.Unlock()
		return zero, err
	}
	prev := l.items[idx]
	patched := patch(prev)
	l.items[idx] = patched
	l.mu.Unlock()

	saved, err := commit(ctx, patched)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, key)
	cur := l.indexLocked(key)
	if err != nil {
		if cur >= 0 {
			l.items[cur] = prev
		} else {
			l.insertLocked(idx, prev)
		}
		return zero, err
	}
	if cur >= 0 {
		l.items[cur] = saved
	} else {
		l.insertLocked(idx, saved)
	}
	return saved, nil
}

// Delete removes the item with key right away and calls commit. On failure
// the item is put back at its original index.
func (l *List[T]) Delete(ctx context.Context, key string, commit func(context.Context) error) error {
	l.mu.Lock()
	idx := l.indexLocked(key)
	if idx < 0 {
		l.mu.Unlock()
		return ErrNotFound
	}
	if err := l.beginLocked(key); err != nil {
		l.mu.Unlock()
		return err
	}
	removed := l.items[idx]
	l.removeLocked(idx)
	l.mu.Unlock()

	err := commit(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, key)
	if err != nil {
		if l.indexLocked(key) < 0 {
			l.insertLocked(idx, removed)
		}
		return err
	}
	return nil
}

func (l *List[T]) beginLocked(key string) error {
	if _, busy := l.inflight[key]; busy {
		return ErrMutationInFlight
	}
	l.inflight[key] = struct{}{}
	return nil
}

func (l *List[T]) indexLocked(key string) int {
	for i, item := range l.items {
		if l.key(item) == key {
			return i
		}
	}
	return -1
}

func (l *List[T]) removeLocked(i int) {
	l.items = append(l.items[:i], l.items[i+1:]...)
}

func (l *List[T]) insertLocked(i int, item T) {
	if i > len(l.items) {
		i = len(l.items)
	}
	l.items = append(l.items, item)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = item
}
