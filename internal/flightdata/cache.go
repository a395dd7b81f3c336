package flightdata

import (
	"fmt"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	cacheTTL           = 5 * time.Minute
	cacheCleanupWindow = 10 * time.Minute
)

// entry wraps a cached lookup result. snapshot is nil for a negative
// (not-found) cache entry, which is cached for the same TTL as a
// positive one to avoid repeated provider calls for a known-missing
// flight/day pair.
type entry struct {
	snapshot *FlightSnapshot
	found    bool
}

// Cache is the in-process, TTL-bounded flight-snapshot cache with hit
// statistics. patrickmn/go-cache already does lazy expiry on get and
// periodic janitor sweeps; we layer hit/miss counters on top since the
// library itself doesn't expose them.
type Cache struct {
	inner  *gocache.Cache
	hits   int64
	misses int64
}

func NewCache() *Cache {
	return &Cache{inner: gocache.New(cacheTTL, cacheCleanupWindow)}
}

func cacheKey(flightNumber, departureDate string) string {
	return fmt.Sprintf("%s:%s", flightNumber, departureDate)
}

// Get returns a cached snapshot and whether the key was present and
// unexpired. A present=true, snapshot=nil result is a cached
// not-found; callers must check present before treating a nil
// snapshot as a cache miss.
func (c *Cache) Get(flightNumber, departureDate string) (snapshot *FlightSnapshot, present bool) {
	key := cacheKey(flightNumber, departureDate)
	v, ok := c.inner.Get(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	e := v.(entry)
	return e.snapshot, true
}

// Set stores a positive result.
func (c *Cache) Set(flightNumber, departureDate string, snapshot *FlightSnapshot) {
	c.inner.Set(cacheKey(flightNumber, departureDate), entry{snapshot: snapshot, found: true}, gocache.DefaultExpiration)
}

// SetNotFound caches a negative (404) result for the same TTL as a hit.
func (c *Cache) SetNotFound(flightNumber, departureDate string) {
	c.inner.Set(cacheKey(flightNumber, departureDate), entry{snapshot: nil, found: false}, gocache.DefaultExpiration)
}

// Stats mirrors the original system's cache telemetry: hits, misses and
// the derived hit rate.
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
	Size    int
}

func (c *Cache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, HitRate: rate, Size: c.inner.ItemCount()}
}
