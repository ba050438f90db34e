package properties

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Supplier computes a property value at resolution time.
type Supplier func() (string, error)

// Reader is the read-only view of a Store handed to builders and resources.
type Reader interface {
	Get(key string) (string, bool)
	GetOrDefault(key, fallback string) string
	Keys() []string
	Snapshot() map[string]string
}

type future struct {
	id       uint64
	key      string
	supplier Supplier
}

// Store is a concurrency-safe property map. It is written by the
// orchestrating goroutine and read by log watchers.
type Store struct {
	mu      sync.RWMutex
	values  map[string]string
	futures []future
	nextID  uint64
}

// NewStore creates an empty property store.
func NewStore() *Store {
	return &Store{values: map[string]string{}}
}

// Set stores an immediate value, dropping any future registered for key.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dropFuture(key)
}

// SetDefault stores value only if key has neither a value nor a registered
// future. It reports whether the value was stored.
func (s *Store) SetDefault(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false
	}
	for _, f := range s.futures {
		if f.key == key {
			return false
		}
	}
	s.values[key] = value
	return true
}

// SetFuture registers a deferred value. The supplier runs on every
// ResolveFutures call until Set or Delete drops it. Registering the same key
// again replaces the supplier.
func (s *Store) SetFuture(key string, supplier Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropFuture(key)
	s.nextID++
	s.futures = append(s.futures, future{id: s.nextID, key: key, supplier: supplier})
}

// Delete removes key and any future registered for it.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.dropFuture(key)
}

func (s *Store) dropFuture(key string) {
	s.futures = slices.DeleteFunc(s.futures, func(f future) bool { return f.key == key })
}

// ResolveFutures evaluates the registered suppliers in registration order and
// writes their results into the value map. Suppliers stay registered, so each
// call recomputes them. Suppliers run without the lock held and may read other
// properties. The first failing supplier stops resolution.
func (s *Store) ResolveFutures() error {
	s.mu.RLock()
	registered := slices.Clone(s.futures)
	s.mu.RUnlock()

	for _, f := range registered {
		value, err := f.supplier()
		if err != nil {
			return fmt.Errorf("failed to resolve property %s: %w", f.key, err)
		}
		s.mu.Lock()
		if s.hasFuture(f.id) {
			s.values[f.key] = value
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) hasFuture(id uint64) bool {
	return slices.ContainsFunc(s.futures, func(f future) bool { return f.id == id })
}

// Futures returns the keys with a registered supplier in registration order.
func (s *Store) Futures() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.futures))
	for _, f := range s.futures {
		keys = append(keys, f.key)
	}
	return keys
}

// Get returns the immediate value of key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetOrDefault returns the value of key or fallback when unset.
func (s *Store) GetOrDefault(key, fallback string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return fallback
}

// Keys returns the sorted keys with immediate values.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Snapshot returns a copy of the immediate values.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Len returns the number of immediate values.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
