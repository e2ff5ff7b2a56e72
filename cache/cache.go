// Package cache implements the general-purpose cache engine (C6): TTL +
// max-idle + LRU eviction, atomic hit/miss/eviction statistics, and
// glob-pattern key queries. Grounded on the other_examples tempuscache
// package (container/list LRU + hash map + background janitor), extended
// with an idle-timeout axis and MatchGlob-based key queries neither the
// teacher nor tempuscache need, per spec.md §4.6.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	imaps "github.com/bittoy/ruleflow/internal/maps"
)

// entry is the value stored in each LRU list element.
type entry struct {
	key         string
	value       any
	expiresAt   time.Time // zero if TTL == 0 (never expires by TTL)
	createdAt   time.Time
	lastAccess  time.Time
	idle        time.Duration // zero disables idle expiry for this entry
	accessCount int64
	size        int64 // estimated byte size, per spec.md §3
}

func (e *entry) expiredAt(now time.Time) bool {
	if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		return true
	}
	if e.idle > 0 && now.Sub(e.lastAccess) > e.idle {
		return true
	}
	return false
}

// Stats are the cache's running counters, read with atomic loads so
// Statistics() never contends with Get/Put, per spec.md §4.6.
type Stats struct {
	Hits           int64
	Misses         int64
	Puts           int64
	Removals       int64
	Evictions      int64
	TotalLoadNanos int64
}

// HitRate returns Hits/(Hits+Misses), or 0 when both are zero, per
// spec.md §8 invariant 4.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a thread-safe, in-memory key-value store with per-entry TTL,
// optional idle expiry, and size-bounded LRU eviction.
type Cache struct {
	mu      sync.Mutex
	data    map[string]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
	idle    time.Duration

	hits           int64
	misses         int64
	puts           int64
	removals       int64
	evictions      int64
	totalLoadNanos int64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Cache. ttl == 0 disables TTL expiry; idle == 0 disables idle
// expiry; maxSize <= 0 disables LRU eviction. If janitorInterval > 0 a
// background goroutine actively sweeps expired entries at that interval, in
// addition to the lazy expiration Get always performs.
func New(ttl, idle time.Duration, maxSize int, janitorInterval time.Duration) *Cache {
	c := &Cache{
		data:    make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		idle:    idle,
		stopCh:  make(chan struct{}),
	}
	if janitorInterval > 0 {
		c.wg.Add(1)
		go c.janitor(janitorInterval)
	}
	return c
}

func (c *Cache) janitor(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.EvictExpired()
		case <-c.stopCh:
			return
		}
	}
}

// EvictExpired performs active expiration, scanning from the LRU back
// (oldest-accessed first) and removing everything past its TTL or idle
// deadline, per spec.md §4.6's evictExpired() operation. The background
// janitor calls this on its own schedule; callers may also invoke it
// directly to force an off-cycle sweep.
func (c *Cache) EvictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e.expiredAt(now) {
			c.removeElement(el)
			atomic.AddInt64(&c.evictions, 1)
		}
		el = prev
	}
}

// Put stores value under key, per spec.md §4.6's put(k, v [, ttlSeconds]).
// An optional ttlOverride replaces the cache's configured TTL for this
// entry alone; a zero or omitted override falls back to the cache's
// configured default. TotalLoadNanos accumulates the wall-clock time spent
// inside Put, the cache's one "loading" operation.
func (c *Cache) Put(key string, value any, ttlOverride ...time.Duration) {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	now := start
	ttl := c.ttl
	if len(ttlOverride) > 0 && ttlOverride[0] > 0 {
		ttl = ttlOverride[0]
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	if el, ok := c.data[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		e.lastAccess = now
		e.idle = c.idle
		e.size = estimateSize(key, value)
		c.lru.MoveToFront(el)
		atomic.AddInt64(&c.puts, 1)
		atomic.AddInt64(&c.totalLoadNanos, int64(time.Since(start)))
		return
	}

	if c.maxSize > 0 && c.lru.Len() >= c.maxSize {
		c.evictOldest()
	}

	el := c.lru.PushFront(&entry{
		key:        key,
		value:      value,
		expiresAt:  expiresAt,
		createdAt:  now,
		lastAccess: now,
		idle:       c.idle,
		size:       estimateSize(key, value),
	})
	c.data[key] = el
	atomic.AddInt64(&c.puts, 1)
	atomic.AddInt64(&c.totalLoadNanos, int64(time.Since(start)))
}

// Get returns the value stored under key and whether it was present and
// unexpired. A hit refreshes recency for LRU and idle-timeout purposes.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.data[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	e := el.Value.(*entry)
	if e.expiredAt(time.Now()) {
		c.removeElement(el)
		atomic.AddInt64(&c.evictions, 1)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	e.lastAccess = time.Now()
	e.accessCount++
	c.lru.MoveToFront(el)
	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// ContainsKey reports whether key is present and unexpired, without
// affecting recency or hit/miss statistics, per spec.md §4.6's
// containsKey(k) operation.
func (c *Cache) ContainsKey(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.data[key]
	if !ok {
		return false
	}
	return !el.Value.(*entry).expiredAt(time.Now())
}

// Remove deletes key unconditionally. Removing an absent key is a no-op.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.data[key]; ok {
		c.removeElement(el)
		atomic.AddInt64(&c.removals, 1)
	}
}

// Clear removes every entry without affecting cumulative statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*list.Element)
	c.lru = list.New()
}

// Keys returns every non-expired key matching a glob pattern (supporting
// '*' and '?'), per spec.md §4.6's key-pattern query requirement.
func (c *Cache) Keys(pattern string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	var out []string
	for key, el := range c.data {
		e := el.Value.(*entry)
		if e.expiredAt(now) {
			continue
		}
		if imaps.MatchGlob(pattern, key) {
			out = append(out, key)
		}
	}
	return out
}

// Len returns the current entry count, including any not-yet-lazily-expired
// entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Statistics returns a snapshot of the cache's running counters.
func (c *Cache) Statistics() Stats {
	return Stats{
		Hits:           atomic.LoadInt64(&c.hits),
		Misses:         atomic.LoadInt64(&c.misses),
		Puts:           atomic.LoadInt64(&c.puts),
		Removals:       atomic.LoadInt64(&c.removals),
		Evictions:      atomic.LoadInt64(&c.evictions),
		TotalLoadNanos: atomic.LoadInt64(&c.totalLoadNanos),
	}
}

// Shutdown stops the background janitor, if one is running, and blocks
// until it has exited.
func (c *Cache) Shutdown() {
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	c.wg.Wait()
}

// removeElement deletes el from both the map and the LRU list. Callers
// must hold c.mu.
func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.data, e.key)
	c.lru.Remove(el)
}

// evictOldest removes the least-recently-used entry, breaking ties among
// entries with identical lastAccess by earliest creation, per spec.md
// §4.6's eviction-order policy. Callers must hold c.mu.
func (c *Cache) evictOldest() {
	victim := c.lru.Back()
	if victim == nil {
		return
	}
	oldest := victim.Value.(*entry)
	for el := victim.Prev(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		if !e.lastAccess.Equal(oldest.lastAccess) {
			break
		}
		if e.createdAt.Before(oldest.createdAt) {
			victim = el
			oldest = e
		}
	}
	c.removeElement(victim)
	atomic.AddInt64(&c.evictions, 1)
}

// estimateSize approximates an entry's byte footprint for the per-entry
// size bookkeeping spec.md §3 requires. Common scalar and string/byte-slice
// values are sized directly; anything else falls back to its "%v" textual
// length, which is an estimate, not an exact measurement.
func estimateSize(key string, value any) int64 {
	size := int64(len(key))
	switch v := value.(type) {
	case string:
		size += int64(len(v))
	case []byte:
		size += int64(len(v))
	case int, int32, int64, float32, float64, bool:
		size += 8
	default:
		size += int64(len(fmt.Sprintf("%v", v)))
	}
	return size
}
