package locale

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/momacs/localedb/internal/observability"
)

// CachedResolver wraps a Resolver with an in-memory LRU cache.
// Only successful resolutions are cached; failures are asked again.
type CachedResolver struct {
	inner   Resolver
	ids     *lruCache[int64]
	sets    *lruCache[[]int64]
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
// metrics may be nil.
func NewCachedResolver(inner Resolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		ids:     newLRUCache[int64](maxEntries),
		sets:    newLRUCache[[]int64](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedResolver) ResolveByName(ctx context.Context, admin0 string, admin1, admin2 *string) (int64, error) {
	key := fmt.Sprintf("name:%s|%s|%s", admin0, optKey(admin1), optKey(admin2))
	return c.single(ctx, "name", key, func() (int64, error) {
		return c.inner.ResolveByName(ctx, admin0, admin1, admin2)
	})
}

func (c *CachedResolver) ResolveByFIPS(ctx context.Context, fips string) (int64, error) {
	return c.single(ctx, "fips", "fips:"+fips, func() (int64, error) {
		return c.inner.ResolveByFIPS(ctx, fips)
	})
}

func (c *CachedResolver) ResolveFIPSPrefix(ctx context.Context, code string, prefixLen int) (int64, error) {
	prefix, ok := FIPSPrefix(code, prefixLen)
	if !ok {
		return c.inner.ResolveFIPSPrefix(ctx, code, prefixLen)
	}
	// Prefix lookups share entries with exact FIPS lookups.
	return c.single(ctx, "fips_prefix", "fips:"+prefix, func() (int64, error) {
		return c.inner.ResolveFIPSPrefix(ctx, code, prefixLen)
	})
}

func (c *CachedResolver) ResolveAdmin1Partial(ctx context.Context, country, admin1 string, admin2 *string) ([]int64, error) {
	key := fmt.Sprintf("partial:%s|%s|%s", country, admin1, optKey(admin2))
	if ids, ok := c.sets.get(key); ok {
		c.observe("partial", "hit")
		return slices.Clone(ids), nil
	}
	c.observe("partial", "miss")
	ids, err := c.inner.ResolveAdmin1Partial(ctx, country, admin1, admin2)
	if err != nil {
		return nil, err
	}
	c.sets.put(key, slices.Clone(ids))
	return ids, nil
}

func (c *CachedResolver) single(_ context.Context, method, key string, resolve func() (int64, error)) (int64, error) {
	if id, ok := c.ids.get(key); ok {
		c.observe(method, "hit")
		return id, nil
	}
	c.observe(method, "miss")
	id, err := resolve()
	if err != nil {
		return 0, err
	}
	c.ids.put(key, id)
	return id, nil
}

func (c *CachedResolver) observe(method, result string) {
	if c.metrics != nil {
		c.metrics.ResolverCache.WithLabelValues(method, result).Inc()
	}
}

// optKey distinguishes NULL from the empty string in cache keys.
func optKey(s *string) string {
	if s == nil {
		return "\x00"
	}
	return *s
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
