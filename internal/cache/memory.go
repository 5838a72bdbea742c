package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/whereabouts/internal/model"
)

// Memory is an in-process cache. go-cache provides the concurrent map; its
// own expiry and janitor are disabled so that TTL follows the injected clock.
type Memory struct {
	items *gocache.Cache
	ttl   time.Duration
	clock Clock
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMemoryClock sets the clock used for TTL checks.
func WithMemoryClock(c Clock) MemoryOption {
	return func(m *Memory) { m.clock = c }
}

// NewMemory creates an empty in-memory cache with the given TTL.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		items: gocache.New(gocache.NoExpiration, 0),
		ttl:   ttl,
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key Key) (Entry, bool, error) {
	v, found := m.items.Get(key.String())
	if !found {
		return Entry{}, false, nil
	}
	e := v.(Entry)
	if Expired(e.StoredAt, m.clock.Now(), m.ttl) {
		m.items.Delete(key.String())
		return Entry{}, false, nil
	}
	return Entry{Bundle: e.Bundle.Clone(), StoredAt: e.StoredAt}, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key Key, b *model.ContextBundle) error {
	m.items.Set(key.String(), Entry{Bundle: b.Clone(), StoredAt: m.clock.Now()}, gocache.NoExpiration)
	return nil
}

// Evict implements Cache.
func (m *Memory) Evict(_ context.Context, key Key) error {
	m.items.Delete(key.String())
	return nil
}

// Len returns the number of entries held, expired ones included.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}
