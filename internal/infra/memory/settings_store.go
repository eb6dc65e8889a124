package memory

import (
	"context"
	"sync"
)

// SettingsStore is a map-backed settings store.
type SettingsStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSettingsStore returns a store seeded with initial (may be nil).
func NewSettingsStore(initial map[string]string) *SettingsStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &SettingsStore{values: values}
}

func (s *SettingsStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *SettingsStore) AllSettings(context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *SettingsStore) SaveSettings(_ context.Context, values map[string]string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for k, v := range values {
		if old, ok := s.values[k]; ok && old == v {
			continue
		}
		s.values[k] = v
		changed++
	}
	return changed, nil
}
