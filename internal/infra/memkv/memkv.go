// Package memkv is an in-memory key-value store for tests and ephemeral sessions.
package memkv

import (
	"sort"
	"sync"
)

// Store keeps values in a map. Values are copied in and out so callers can
// never alias stored bytes.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	saves  int

	// FailLoad / FailSave, when set, are returned by every call.
	FailLoad error
	FailSave error
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Load implements domain.KeyValueStore.
func (s *Store) Load(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailLoad != nil {
		return nil, false, s.FailLoad
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Save implements domain.KeyValueStore.
func (s *Store) Save(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.values[key] = append([]byte{}, value...)
	s.saves++
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Saves returns how many successful saves happened.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
