package progress

import (
	"sync"
	"time"

	"github.com/vampirenirmal/insightatlas/internal/insight"
)

// Cache holds the latest progress update per insight id so late-joining
// subscribers can replay state they missed. Terminal entries are evicted
// after a grace period rather than immediately, so a client connecting
// slightly after completion can still read the final state once.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	grace   time.Duration
}

type cacheEntry struct {
	update insight.ProgressUpdate
	seq    uint64
}

// NewCache builds a cache evicting terminal entries after grace.
func NewCache(grace time.Duration) *Cache {
	if grace <= 0 {
		grace = 60 * time.Second
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		grace:   grace,
	}
}

// Put stores the update and, on terminal status, schedules eviction after
// the grace period. A newer write supersedes a pending eviction.
func (c *Cache) Put(update insight.ProgressUpdate) {
	c.mu.Lock()
	entry := cacheEntry{update: update, seq: c.entries[update.InsightID].seq + 1}
	c.entries[update.InsightID] = entry
	c.mu.Unlock()

	if update.Status == insight.StatusCompleted || update.Status == insight.StatusFailed {
		seq := entry.seq
		id := update.InsightID
		time.AfterFunc(c.grace, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if cur, ok := c.entries[id]; ok && cur.seq == seq {
				delete(c.entries, id)
			}
		})
	}
}

// Get returns the cached update for an insight id, if present.
func (c *Cache) Get(insightID string) (insight.ProgressUpdate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[insightID]
	return entry.update, ok
}
