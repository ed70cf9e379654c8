// Package cache provides an in-process resolution cache so repeated title
// hints do not re-query the catalog of record.
package cache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"melodex/internal/core"
)

// ResolutionCache remembers recent successful resolutions in an LRU and
// known-unmatched hints in a Bloom filter. A Bloom false positive skips one
// search that might have matched; the entry is retried after the next
// process restart. That trade is acceptable for a weekly trending feed.
type ResolutionCache struct {
	hits   *lru.Cache[string, core.Track]
	misses *bloom.BloomFilter
	mutex  sync.RWMutex
}

func New(size int, falsePositiveRate float64) *ResolutionCache {
	hitCache, _ := lru.New[string, core.Track](size)

	if size < 0 || size > int(^uint(0)>>1) {
		panic("cache size out of range for uint conversion")
	}

	return &ResolutionCache{
		hits:   hitCache,
		misses: bloom.NewWithEstimates(uint(size), falsePositiveRate),
	}
}

// Hit returns a previously resolved track for the normalized hint key.
func (c *ResolutionCache) Hit(key string) (core.Track, bool) {
	return c.hits.Get(key)
}

// PutHit records a successful resolution.
func (c *ResolutionCache) PutHit(key string, track core.Track) {
	c.hits.Add(key, track)
}

// MarkMiss records that a hint produced no usable candidate.
func (c *ResolutionCache) MarkMiss(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.misses.AddString(key)
}

// KnownMiss reports whether a hint previously produced no match. Subject to
// the filter's false positive rate.
func (c *ResolutionCache) KnownMiss(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.misses.TestString(key)
}

// Len returns the number of cached successful resolutions.
func (c *ResolutionCache) Len() int {
	return c.hits.Len()
}
