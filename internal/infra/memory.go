package infra

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryStore serves as both MarkerStore and SnapshotCache when Redis is not
// configured. State is per process.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryStore) MarkOnce(_ context.Context, key string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	if it, ok := m.items["marker:"+key]; ok && !it.expired(now) {
		return false, nil
	}
	m.items["marker:"+key] = memoryItem{expiresAt: expiresAt}
	return true, nil
}

func (m *MemoryStore) Unmark(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, "marker:"+key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok || it.expired(m.now()) {
		return nil, false, nil
	}
	return it.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// sweep drops expired entries; called under lock
func (m *MemoryStore) sweep(now time.Time) {
	for k, it := range m.items {
		if it.expired(now) {
			delete(m.items, k)
		}
	}
}
