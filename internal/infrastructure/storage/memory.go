package storage

import (
	"sort"
	"sync"
)

// Memory is an in-memory Storage used by tests and as a fallback when no
// on-disk backend is available. A non-zero Quota caps the total stored
// bytes, mirroring browser localStorage limits.
type Memory struct {
	Quota int

	mu    sync.Mutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory store without a quota.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

// Get returns the stored value, or (nil, nil) when the key is absent.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

// Set stores a copy of value under key. Fails with ErrQuotaExceeded when a
// quota is configured and the write would exceed it.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Quota > 0 {
		total := len(value)
		for k, v := range m.items {
			if k == key {
				continue
			}
			total += len(v)
		}
		if total > m.Quota {
			return ErrQuotaExceeded
		}
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.items[key] = cp
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys returns all stored keys in sorted order.
func (m *Memory) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
