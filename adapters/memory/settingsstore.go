// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artpar/saasgate/ports"
)

// SettingsStore is an in-memory implementation of ports.SettingsStore.
type SettingsStore struct {
	mu     sync.RWMutex
	values map[string]map[string]ports.StoredValue // owner -> key -> value
	now    func() time.Time
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		values: make(map[string]map[string]ports.StoredValue),
		now:    time.Now,
	}
}

// WithClock sets the timestamp source used for UpdatedAt.
func (s *SettingsStore) WithClock(c ports.Clock) *SettingsStore {
	s.now = c.Now
	return s
}

// Get retrieves a value.
func (s *SettingsStore) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[owner][key]
	if !ok {
		return nil, false, nil
	}
	return clone(v.Value), true, nil
}

// Set stores or replaces a value.
func (s *SettingsStore) Set(ctx context.Context, owner, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.values[owner]
	if !ok {
		byKey = make(map[string]ports.StoredValue)
		s.values[owner] = byKey
	}
	byKey[key] = ports.StoredValue{Key: key, Value: clone(value), UpdatedAt: s.now()}
	return nil
}

// Delete removes a value.
func (s *SettingsStore) Delete(ctx context.Context, owner, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values[owner], key)
	if len(s.values[owner]) == 0 {
		delete(s.values, owner)
	}
	return nil
}

// List returns every value for owner ordered by key.
func (s *SettingsStore) List(ctx context.Context, owner string) ([]ports.StoredValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ports.StoredValue, 0, len(s.values[owner]))
	for _, v := range s.values[owner] {
		v.Value = clone(v.Value)
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
