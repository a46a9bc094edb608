// Package cache provides analysis result caching.
package cache

import (
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/societymartingale/dockerfile-analyzer/pkg/dockerfile"
)

// Cache memoizes analysis results by content digest, so identical
// inputs passed more than once are analyzed only once. Safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[digest.Digest]*dockerfile.Analysis
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[digest.Digest]*dockerfile.Analysis)}
}

// Key derives the cache key for a document's raw bytes.
func Key(content []byte) digest.Digest {
	return digest.FromBytes(content)
}

// Get returns the cached analysis for a key, if present. The returned
// analysis is shared; callers must not mutate it.
func (c *Cache) Get(key digest.Digest) (*dockerfile.Analysis, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	analysis, ok := c.entries[key]
	return analysis, ok
}

// Put stores an analysis under the given key.
func (c *Cache) Put(key digest.Digest, analysis *dockerfile.Analysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = analysis
}

// Analyze returns the cached result for content, analyzing and caching
// on a miss. Failed analyses are not cached.
func (c *Cache) Analyze(content []byte) (*dockerfile.Analysis, error) {
	key := Key(content)
	if analysis, ok := c.Get(key); ok {
		return analysis, nil
	}

	analysis, err := dockerfile.Analyze(string(content))
	if err != nil {
		return nil, err
	}
	c.Put(key, analysis)
	return analysis, nil
}

// Len returns the number of cached analyses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
