// Package cache provides an in-memory TTL cache for market data responses.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/aristath/fks-analytics/internal/domain"
)

// DefaultTTL is used when no TTL is configured
const DefaultTTL = 5 * time.Minute

type entry struct {
	bars      []domain.Bar
	expiresAt time.Time
}

// Cache is a thread-safe TTL cache keyed on (adapter, symbol, date range).
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	hits    uint64
	misses  uint64
}

// Stats summarizes cache effectiveness
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// New creates a cache with the given TTL; zero means DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Key derives the cache key for a fetch request.
func Key(adapter, symbol string, start, end time.Time) string {
	raw := strings.Join([]string{
		adapter,
		symbol,
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
	}, "_")
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached bars for key, or false on miss or expiry.
func (c *Cache) Get(key string) ([]domain.Bar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.bars, true
}

// Set stores bars under key with the cache TTL.
func (c *Cache) Set(key string, bars []domain.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{bars: bars, expiresAt: time.Now().Add(c.ttl)}
}

// Delete removes a single entry
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns current counters
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
