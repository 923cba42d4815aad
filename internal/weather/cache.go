package weather

import (
	"context"
	"sync"
	"time"
)

// cacheEntry is replaced wholesale on refresh, never mutated in place.
type cacheEntry struct {
	observation Observation
	expiresAt   time.Time
}

// CachingProvider wraps a Provider and memoizes observations per city for a
// fixed TTL. The cache key is the city only: weather does not depend on who
// asks, so callers authenticated as different users share entries. Errors
// are never cached; an expired entry stays in place until a fetch succeeds.
// Expiry is lazy (checked on read) and entries are never evicted, which is
// fine for the small set of distinct cities seen in practice.
type CachingProvider struct {
	wrapped Provider
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
	fetches map[string]*sync.Mutex

	now func() time.Time // stubbed in tests
}

// NewCachingProvider creates a TTL-caching decorator over wrapped.
func NewCachingProvider(wrapped Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{
		wrapped: wrapped,
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
		fetches: make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// Fetch returns the cached observation for city if it has not expired,
// otherwise delegates to the wrapped provider and refreshes the entry.
func (c *CachingProvider) Fetch(ctx context.Context, city string, user User) (Observation, error) {
	lock := c.cityLock(city)
	lock.Lock()
	defer lock.Unlock()

	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[city]
	c.mu.Unlock()

	if ok && !now.After(entry.expiresAt) {
		return entry.observation, nil
	}

	obs, err := c.wrapped.Fetch(ctx, city, user)
	if err != nil {
		// Leave any expired entry in place; the next call retries upstream.
		return Observation{}, err
	}

	c.mu.Lock()
	c.entries[city] = &cacheEntry{observation: obs, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return obs, nil
}

// cityLock serializes fetches for a single city, so concurrent misses for
// the same city produce one upstream call while other cities proceed
// independently. c.mu is only held around map access, never across the
// upstream call.
func (c *CachingProvider) cityLock(city string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.fetches[city]
	if !ok {
		lock = &sync.Mutex{}
		c.fetches[city] = lock
	}
	return lock
}
