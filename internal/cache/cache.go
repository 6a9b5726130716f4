// Package cache stores extracted concept lists per book title.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a book's concept list is kept.
const DefaultTTL = 7 * 24 * time.Hour

// MaxMemoryEntries bounds the number of titles a Memory cache holds.
const MaxMemoryEntries = 1024

// Key returns the cache key for a book title. Titles differing only in
// case or surrounding whitespace share a key.
func Key(title string) string {
	return "concepts:" + strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Memory is an in-process cache used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	entries map[string]memEntry
}

type memEntry struct {
	concepts []string
	expires  time.Time
}

// NewMemory returns an empty cache. A non-positive ttl uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, max: MaxMemoryEntries, now: time.Now, entries: make(map[string]memEntry)}
}

func (m *Memory) GetConcepts(_ context.Context, title string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := Key(title)
	e, ok := m.entries[k]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, k)
		return nil, false, nil
	}
	return append([]string(nil), e.concepts...), true, nil
}

// SetConcepts stores concepts for title. Expired entries are dropped on
// every write, and when the cache is full the entry closest to expiry is
// evicted.
func (m *Memory) SetConcepts(_ context.Context, title string, concepts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := Key(title)
	for key, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, key)
		}
	}
	if _, ok := m.entries[k]; !ok && len(m.entries) >= m.max {
		m.evictOldest()
	}
	m.entries[k] = memEntry{
		concepts: append([]string(nil), concepts...),
		expires:  now.Add(m.ttl),
	}
	return nil
}

// Len returns the number of stored titles, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) evictOldest() {
	var (
		oldest string
		first  time.Time
	)
	for key, e := range m.entries {
		if oldest == "" || e.expires.Before(first) {
			oldest, first = key, e.expires
		}
	}
	delete(m.entries, oldest)
}
