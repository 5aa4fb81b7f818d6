// Package cache provides caching implementations for Steward check results.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/steward"
)

// Compile-time interface check.
var _ steward.Cache = (*Memory)(nil)

// Memory is an in-memory cache with TTL-based expiration. Entries remember
// their subject and object so mutations can invalidate from either side.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	maxSize int
}

type entry struct {
	subject   string
	object    string
	allowed   bool
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached decision.
func (m *Memory) Get(_ context.Context, subject steward.Subject, relation string, object steward.Object) (bool, bool) {
	key := cacheKey(subject, relation, object)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, false
	}
	return e.allowed, true
}

// Set stores a decision with the given time-to-live.
func (m *Memory) Set(_ context.Context, subject steward.Subject, relation string, object steward.Object, allowed bool, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	key := cacheKey(subject, relation, object)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		subject:   subject.Ref(),
		object:    object.Ref(),
		allowed:   allowed,
		expiresAt: time.Now().Add(ttl),
	}
}

// InvalidateSubject removes all cached decisions for a subject.
func (m *Memory) InvalidateSubject(_ context.Context, subject steward.Subject) {
	ref := subject.Ref()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.subject == ref {
			delete(m.entries, k)
		}
	}
}

// InvalidateObject removes all cached decisions for an object.
func (m *Memory) InvalidateObject(_ context.Context, object steward.Object) {
	ref := object.Ref()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.object == ref {
			delete(m.entries, k)
		}
	}
}

func cacheKey(subject steward.Subject, relation string, object steward.Object) string {
	return fmt.Sprintf("%s#%s@%s", object.Ref(), relation, subject.Ref())
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
