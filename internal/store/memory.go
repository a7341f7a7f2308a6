package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryMedium keeps entries in process memory. A positive quota caps the total
// size of keys plus values in bytes, mirroring a browser storage budget.
type MemoryMedium struct {
	mu      sync.RWMutex
	entries map[string][]byte
	quota   int
	used    int
}

func NewMemoryMedium(quota int) *MemoryMedium {
	return &MemoryMedium{entries: make(map[string][]byte), quota: quota}
}

func (m *MemoryMedium) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryMedium) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used
	if old, ok := m.entries[key]; ok {
		used -= len(key) + len(old)
	}
	used += len(key) + len(value)
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	m.used = used
	return nil
}

func (m *MemoryMedium) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[key]; ok {
		m.used -= len(key) + len(old)
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryMedium) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryMedium) Close() error { return nil }
