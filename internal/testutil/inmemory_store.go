package testutil

import (
	"context"
	"sync"

	ierr "github.com/tirelane/tirelane/internal/errors"
)

// InMemoryStore is a generic thread-safe store for testing. Insertion order
// is tracked so stores can break timestamp ties deterministically.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	seq   map[string]int
	next  int
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
		seq:   make(map[string]int),
	}
}

func (s *InMemoryStore[T]) Create(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; exists {
		return ierr.NewErrorf("item %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	s.seq[id] = s.next
	s.next++
	return nil
}

func (s *InMemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, exists := s.items[id]
	if !exists {
		var zero T
		return zero, ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

func (s *InMemoryStore[T]) Update(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return ierr.NewErrorf("item %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	delete(s.items, id)
	delete(s.seq, id)
	return nil
}

// List returns all items matching the filter, in no particular order.
func (s *InMemoryStore[T]) List(_ context.Context, match func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []T
	for _, item := range s.items {
		if match == nil || match(item) {
			result = append(result, item)
		}
	}
	return result
}

// Seq returns the insertion sequence number for an id.
func (s *InMemoryStore[T]) Seq(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq[id]
}

// Clear removes all items
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.seq = make(map[string]int)
	s.next = 0
}
