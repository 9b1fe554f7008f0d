package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ttlCache memoizes loader results for a fixed duration. Concurrent misses
// for the same key share one load. Loads that started before an
// invalidation are returned to their callers but not stored.
type ttlCache[V any] struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu         sync.Mutex
	generation uint64
	entries    map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value   V
	expires time.Time
}

func newTTLCache[V any](ttl time.Duration, now func() time.Time) *ttlCache[V] {
	if now == nil {
		now = time.Now
	}
	return &ttlCache[V]{ttl: ttl, now: now, entries: make(map[string]cacheEntry[V])}
}

func (c *ttlCache[V]) get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	gen := c.generation
	c.mu.Unlock()
	if ok && c.now().Before(e.expires) {
		return e.value, nil
	}

	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10)+"\x00"+key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.entries[key] = cacheEntry[V]{value: value, expires: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// invalidate drops every entry
func (c *ttlCache[V]) invalidate() {
	c.mu.Lock()
	c.generation++
	c.entries = make(map[string]cacheEntry[V])
	c.mu.Unlock()
}
