// Package cache provides a tag-invalidated LRU used to front catalog reads.
package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Options configures a Cache.
type Options struct {
	// MaxEntries bounds the number of cached values. Default: 2048.
	MaxEntries int
	// TTL is how long a value stays fresh. Zero disables expiry. Default: 5m.
	TTL time.Duration

	now func() time.Time
}

// DefaultOptions returns the defaults used by New.
func DefaultOptions() Options {
	return Options{
		MaxEntries: 2048,
		TTL:        5 * time.Minute,
		now:        time.Now,
	}
}

// Option is a functional option for New.
type Option func(*Options)

// WithMaxEntries sets the entry limit. Non-positive values are ignored.
func WithMaxEntries(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxEntries = n
		}
	}
}

// WithTTL sets the entry lifetime. Negative values are ignored.
func WithTTL(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.TTL = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.now = now
		}
	}
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	Invalidations int64
	Entries       int
}

type entry struct {
	key     string
	value   any
	tags    []string
	expires time.Time
	elem    *list.Element
}

// Cache is an LRU keyed by string. Every entry carries tags; Invalidate
// drops all entries sharing a tag. Loads of the same key are collapsed with
// singleflight, and a load that started before an invalidation is not
// stored. Errors are never cached.
//
// Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	tagged  map[string]map[string]struct{}
	lru     *list.List
	gen     uint64
	flight  singleflight.Group
	opts    Options

	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	invalidations atomic.Int64
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{
		entries: make(map[string]*entry),
		tagged:  make(map[string]map[string]struct{}),
		lru:     list.New(),
		opts:    o,
	}
}

// Get returns the fresh value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.expired(e) {
		c.removeLocked(e)
		c.misses.Add(1)
		return nil, false
	}
	c.lru.MoveToFront(e.elem)
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the given tags, replacing any previous value.
func (c *Cache) Set(key string, value any, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, tags)
}

// Load returns the cached value for key or calls fn to produce it. Concurrent
// loads of one key share a single call to fn. A caller whose ctx ends stops
// waiting without cancelling the shared call.
func (c *Cache) Load(ctx context.Context, key string, tags []string, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	// The shared call outlives any one caller; each caller waits on its own ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		v, err := fn(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.setLocked(key, v, tags)
		}
		c.mu.Unlock()
		return v, nil
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate removes every entry carrying any of tags.
func (c *Cache) Invalidate(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.invalidations.Add(1)
	for _, tag := range tags {
		for key := range c.tagged[tag] {
			if e, ok := c.entries[key]; ok {
				c.removeLocked(e)
			}
		}
	}
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.entries = make(map[string]*entry)
	c.tagged = make(map[string]map[string]struct{})
	c.lru.Init()
}

// Len returns the number of stored entries, including expired ones not yet
// collected.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		Invalidations: c.invalidations.Load(),
		Entries:       c.Len(),
	}
}

func (c *Cache) setLocked(key string, value any, tags []string) {
	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}
	e := &entry{key: key, value: value, tags: tags}
	if c.opts.TTL > 0 {
		e.expires = c.opts.now().Add(c.opts.TTL)
	}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	for _, tag := range tags {
		keys, ok := c.tagged[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tagged[tag] = keys
		}
		keys[key] = struct{}{}
	}

	for c.opts.MaxEntries > 0 && len(c.entries) > c.opts.MaxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry))
		c.evictions.Add(1)
	}
}

func (c *Cache) removeLocked(e *entry) {
	c.lru.Remove(e.elem)
	delete(c.entries, e.key)
	for _, tag := range e.tags {
		keys := c.tagged[tag]
		delete(keys, e.key)
		if len(keys) == 0 {
			delete(c.tagged, tag)
		}
	}
}

func (c *Cache) expired(e *entry) bool {
	return !e.expires.IsZero() && !c.opts.now().Before(e.expires)
}
