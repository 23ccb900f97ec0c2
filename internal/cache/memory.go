package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// memoryTier is a bounded LRU with an absolute expiry per entry. The
// expirable variant of the library only supports one TTL for the whole
// cache, so expiry is checked here on read.
type memoryTier struct {
	maxEntries int
	items      *lru.Cache[string, memoryItem]
	mu         sync.Mutex
	now        func() time.Time

	evictions int64
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func newMemoryTier(maxEntries int, now func() time.Time) *memoryTier {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxMemoryEntries
	}
	// only fails for a non-positive size
	items, _ := lru.New[string, memoryItem](maxEntries)
	return &memoryTier{
		maxEntries: maxEntries,
		items:      items,
		now:        now,
	}
}

func (m *memoryTier) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items.Get(key)
	if !ok {
		return nil, false
	}
	if !m.now().Before(item.expiresAt) {
		m.items.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (m *memoryTier) set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Add reports capacity evictions only; Remove and Purge do not count
	if evicted := m.items.Add(key, memoryItem{value: value, expiresAt: m.now().Add(ttl)}); evicted {
		m.evictions++
	}
}

func (m *memoryTier) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Remove(key)
}

func (m *memoryTier) clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.items.Len()
	m.items.Purge()
	return n
}

// removeExpired drops every expired entry and returns how many were dropped
func (m *memoryTier) removeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, key := range m.items.Keys() {
		item, ok := m.items.Peek(key)
		if ok && !now.Before(item.expiresAt) {
			m.items.Remove(key)
			removed++
		}
	}
	return removed
}

func (m *memoryTier) stats() (size int, evictions int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Len(), m.evictions
}
