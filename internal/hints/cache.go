// Package hints resolves the free-text hints a comment leaves behind into
// taxonomy codes, through the local index, a bounded cache, and the external
// taxonomy-provider API.
package hints

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

const (
	// highWaterMark is the entry count that triggers a prune pass.
	highWaterMark = 1800

	// Prune keep thresholds: entries at or above the threshold always
	// survive; below it, survival odds scale with hit count. The second,
	// lower threshold runs only if the first pass left the cache over the
	// mark.
	pruneThreshold           = 20
	aggressivePruneThreshold = 10
)

type cacheEntry struct {
	code string
	hits atomic.Int64 // approximate; concurrent bumps may be lost, that is fine
}

// HintCache maps a normalized hint to a previously resolved taxonomy code
// (possibly the null code). Insert and lookup are lock-free; eviction is an
// approximate least-frequently-used sweep that tolerates racing hit bumps.
type HintCache struct {
	entries sync.Map // string -> *cacheEntry
	count   atomic.Int64

	randFloat func() float64 // swappable for tests
}

func NewHintCache() *HintCache {
	return &HintCache{randFloat: rand.Float64}
}

// Get returns the cached code for a hint. The second result distinguishes a
// cached null resolution from an absent entry.
func (c *HintCache) Get(hint string) (string, bool) {
	v, ok := c.entries.Load(hint)
	if !ok {
		return "", false
	}
	e := v.(*cacheEntry)
	e.hits.Add(1)
	return e.code, true
}

// Put records a resolution and prunes if the cache has outgrown its mark.
func (c *HintCache) Put(hint, code string) {
	e := &cacheEntry{code: code}
	e.hits.Store(1)
	if _, loaded := c.entries.LoadOrStore(hint, e); loaded {
		return
	}
	if c.count.Add(1) > highWaterMark {
		c.Prune()
	}
}

func (c *HintCache) Len() int {
	return int(c.count.Load())
}

// Prune sweeps the cache once at the standard threshold, then once more at
// the aggressive threshold if the first sweep was not enough. Entries are
// removed with probability inversely proportional to their hit count.
func (c *HintCache) Prune() {
	c.sweep(pruneThreshold)
	if c.count.Load() > highWaterMark {
		c.sweep(aggressivePruneThreshold)
	}
}

func (c *HintCache) sweep(threshold int64) {
	c.entries.Range(func(key, v any) bool {
		hits := v.(*cacheEntry).hits.Load()
		if hits >= threshold {
			return true
		}
		if c.randFloat() >= float64(hits)/float64(threshold) {
			c.entries.Delete(key)
			c.count.Add(-1)
		}
		return true
	})
}
