package suggest

import (
	"math"
	"sync"

	"github.com/charmbracelet/log"
)

// ResultCache keeps the id lists of recent searches. Each snapshot owns one,
// so a rebuild drops every cached entry at once.
type ResultCache struct {
	results     map[string][]string
	accessTime  map[string]int64
	accessCount int64
	hits        int
	misses      int
	maxEntries  int
	mu          sync.Mutex
}

// NewResultCache creates a cache holding at most maxEntries queries. A size of
// zero or less disables caching.
func NewResultCache(maxEntries int) *ResultCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &ResultCache{
		results:    make(map[string][]string, maxEntries),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

// Get returns the cached ids for key.
func (rc *ResultCache) Get(key string) ([]string, bool) {
	if rc == nil || rc.maxEntries == 0 {
		return nil, false
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()

	ids, ok := rc.results[key]
	if !ok {
		rc.misses++
		return nil, false
	}
	rc.hits++
	rc.markAccessed(key)
	return ids, true
}

// Put stores ids under key, evicting the least recently used entry when full.
// Callers must not modify ids afterwards.
func (rc *ResultCache) Put(key string, ids []string) {
	if rc == nil || rc.maxEntries == 0 {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, ok := rc.results[key]; !ok && len(rc.results) >= rc.maxEntries {
		rc.evictLRU()
	}
	rc.results[key] = ids
	rc.markAccessed(key)
}

// Stats returns cache counters.
func (rc *ResultCache) Stats() map[string]int {
	if rc == nil {
		return map[string]int{}
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return map[string]int{
		"cacheEntries": len(rc.results),
		"maxCached":    rc.maxEntries,
		"cacheHits":    rc.hits,
		"cacheMisses":  rc.misses,
	}
}

func (rc *ResultCache) markAccessed(key string) {
	rc.accessCount++
	rc.accessTime[key] = rc.accessCount
}

func (rc *ResultCache) evictLRU() {
	var oldestKey string
	var oldestTime int64 = math.MaxInt64

	for key, accessTime := range rc.accessTime {
		if accessTime < oldestTime {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestTime != math.MaxInt64 {
		delete(rc.results, oldestKey)
		delete(rc.accessTime, oldestKey)
		log.Debugf("Evicted query '%s' from result cache", oldestKey)
	}
}
