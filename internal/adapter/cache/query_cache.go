package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"paperrag/internal/domain"
)

// QueryCache memoizes retrieval results per question. Entries expire after
// a TTL and the whole cache is invalidated when the index is replaced, so
// a stale pair can never answer for a new document.
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	indexGen uint64
}

type cacheEntry struct {
	chunks    []domain.RetrievedChunk
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(question string) string {
	hash := sha256.Sum256([]byte(question))
	return hex.EncodeToString(hash[:16])
}

// Get returns the cached passages for the question, if still valid. The
// expiry check and the recency bump happen under one write lock, so a
// concurrent Invalidate cannot leave order entries without a backing map
// entry.
func (c *QueryCache) Get(question string) ([]domain.RetrievedChunk, bool) {
	key := cacheKey(question)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != c.indexGen {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.chunks, true
}

// Put stores the passages retrieved for the question, evicting the least
// recently used entry when full.
func (c *QueryCache) Put(question string, chunks []domain.RetrievedChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(question)
	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	} else {
		c.moveToEnd(key)
	}

	c.entries[key] = &cacheEntry{
		chunks:    chunks,
		timestamp: time.Now(),
		indexGen:  c.indexGen,
	}
}

// Invalidate drops every entry. Call after the index is replaced or
// cleared.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.indexGen++
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
