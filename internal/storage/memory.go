// internal/storage/memory.go
package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	notifier *notifier
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte), notifier: newNotifier()}
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(key, data, out)
}

// Set implements Store
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, origin string) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = data
	s.mu.Unlock()
	s.notifier.notify(Change{Key: key, Value: data, Origin: origin})
	return nil
}

// Remove implements Store
func (s *MemoryStore) Remove(ctx context.Context, key string, origin string) error {
	s.mu.Lock()
	_, existed := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()
	if existed {
		s.notifier.notify(Change{Key: key, Origin: origin, Removed: true})
	}
	return nil
}

// OnChange implements Store
func (s *MemoryStore) OnChange(key string, fn ChangeFunc, opts ...WatchOption) func() {
	return s.notifier.add(key, fn, opts...)
}

// Close implements Store
func (s *MemoryStore) Close() error { return nil }
