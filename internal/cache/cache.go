package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the freshness window for a cached metric.
const DefaultTTL = 5 * time.Minute

// Entry is the last fetched metric for a ticker.
// A nil Value means the upstream reported no data.
type Entry struct {
	Value     *float64
	FetchedAt time.Time
}

// Cache maps a ticker symbol to its last fetched metric.
// It is safe for concurrent use. Entries are never evicted on expiry;
// a stale entry stays until it is overwritten or Clear is called.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	gen     uint64
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source used for timestamps and freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry stored for ticker regardless of its age.
// The returned value is a copy.
func (c *Cache) Get(ticker string) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[ticker]
	c.mu.RUnlock()

	e.Value = clone(e.Value)
	return e, ok
}

// Put stores value for ticker stamped with the current time, replacing any previous entry.
func (c *Cache) Put(ticker string, value *float64) {
	v := clone(value)

	c.mu.Lock()
	c.entries[ticker] = Entry{Value: v, FetchedAt: c.now()}
	c.mu.Unlock()
}

// PutIf stores value like Put, but only while the cache is still at generation
// gen. It reports whether the value was stored.
func (c *Cache) PutIf(gen uint64, ticker string, value *float64) bool {
	v := clone(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return false
	}
	c.entries[ticker] = Entry{Value: v, FetchedAt: c.now()}
	return true
}

// Generation identifies the current cache contents; every Clear advances it.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.gen++
	c.mu.Unlock()
}

// Fresh reports whether e is younger than the cache TTL.
func (c *Cache) Fresh(e Entry) bool {
	return c.now().Sub(e.FetchedAt) < c.ttl
}

// Lookup returns the cached value for ticker if a fresh entry exists.
// Stale entries are reported as misses.
func (c *Cache) Lookup(ticker string) (*float64, bool) {
	e, ok := c.Get(ticker)
	if !ok || !c.Fresh(e) {
		return nil, false
	}
	return e.Value, true
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
