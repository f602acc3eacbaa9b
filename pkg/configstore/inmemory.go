package configstore

import (
	"context"
	"sync"

	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
)

// InMemoryStore is a thread-safe, in-memory Store. Values are set by whoever owns the
// configuration; the transforms only read.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]flowvalue.Value
}

// NewInMemoryStore creates a store seeded with initial. A nil entry in initial is
// stored as absent.
func NewInMemoryStore(initial map[string]any) *InMemoryStore {
	s := &InMemoryStore{
		data: make(map[string]flowvalue.Value, len(initial)),
	}
	for k, v := range initial {
		s.data[k] = flowvalue.Of(v)
	}
	return s
}

// Get returns the stored value for key.
func (s *InMemoryStore) Get(_ context.Context, key string) flowvalue.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

// Set stores value under key, replacing any previous value.
func (s *InMemoryStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = flowvalue.Of(value)
}

// Delete removes key.
func (s *InMemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}
