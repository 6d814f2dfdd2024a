package cache

import (
	"log"
	"sync"
	"time"
)

// CachedGuild holds one guild display name
type CachedGuild struct {
	Name      string
	CreatedAt time.Time
	LastUsed  time.Time
}

// GuildCache caches guild display names by id for the article pages.
// Only the name is kept: editor passphrases and rendered article HTML
// are never stored here.
type GuildCache struct {
	cache       map[int64]*CachedGuild
	mutex       sync.RWMutex
	maxEntries  int           // Maximum number of cached guilds
	maxAge      time.Duration // Maximum age of entries
	cleanupTick time.Duration // How often to run cleanup
	stopCleanup chan struct{}
	stopOnce    sync.Once
	countermux  sync.RWMutex
	hits        int64
	misses      int64
}

// NewGuildCache creates a new guild cache with specified limits
func NewGuildCache(maxEntries int, maxAge time.Duration) *GuildCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	gc := &GuildCache{
		cache:       make(map[int64]*CachedGuild),
		maxEntries:  maxEntries,
		maxAge:      maxAge,
		cleanupTick: time.Minute,
		stopCleanup: make(chan struct{}),
	}
	if maxAge < gc.cleanupTick && maxAge > 0 {
		gc.cleanupTick = maxAge
	}

	go gc.cleanup()

	return gc
}

// Get returns the cached guild name, or false on a miss or an expired entry
func (gc *GuildCache) Get(guildID int64) (string, bool) {
	gc.mutex.RLock()
	entry, exists := gc.cache[guildID]
	gc.mutex.RUnlock()

	if !exists {
		gc.countMiss()
		return "", false
	}

	if time.Since(entry.CreatedAt) > gc.maxAge {
		gc.Invalidate(guildID)
		gc.countMiss()
		return "", false
	}

	gc.countermux.Lock()
	gc.hits++
	gc.countermux.Unlock()

	gc.mutex.Lock()
	entry.LastUsed = time.Now()
	gc.mutex.Unlock()

	return entry.Name, true
}

// Set stores a guild name, evicting the least recently used entry when full
func (gc *GuildCache) Set(guildID int64, name string) {
	now := time.Now()

	gc.mutex.Lock()
	defer gc.mutex.Unlock()

	gc.cache[guildID] = &CachedGuild{
		Name:      name,
		CreatedAt: now,
		LastUsed:  now,
	}
	gc.evictIfNeeded()
}

// Invalidate removes a guild, e.g. after a rename
func (gc *GuildCache) Invalidate(guildID int64) {
	gc.mutex.Lock()
	defer gc.mutex.Unlock()
	delete(gc.cache, guildID)
}

// Len returns the number of cached guilds
func (gc *GuildCache) Len() int {
	gc.mutex.RLock()
	defer gc.mutex.RUnlock()
	return len(gc.cache)
}

// GetStats returns cache statistics
func (gc *GuildCache) GetStats() map[string]interface{} {
	entryCount := gc.Len()

	gc.countermux.RLock()
	hits := gc.hits
	misses := gc.misses
	gc.countermux.RUnlock()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"entries":     entryCount,
		"max_entries": gc.maxEntries,
		"max_age":     gc.maxAge.String(),
		"hits":        hits,
		"misses":      misses,
		"hit_rate":    hitRate,
	}
}

func (gc *GuildCache) countMiss() {
	gc.countermux.Lock()
	gc.misses++
	gc.countermux.Unlock()
}

// evictIfNeeded removes oldest entries if cache is full (must be called with lock held)
func (gc *GuildCache) evictIfNeeded() {
	for len(gc.cache) > gc.maxEntries {
		var oldestKey int64
		var oldestTime time.Time
		found := false

		for key, entry := range gc.cache {
			if !found || entry.LastUsed.Before(oldestTime) {
				oldestKey = key
				oldestTime = entry.LastUsed
				found = true
			}
		}
		if !found {
			return
		}
		delete(gc.cache, oldestKey)
	}
}

// cleanup runs periodically to remove expired entries
func (gc *GuildCache) cleanup() {
	ticker := time.NewTicker(gc.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gc.cleanupExpired()
		case <-gc.stopCleanup:
			return
		}
	}
}

// cleanupExpired removes expired cache entries
func (gc *GuildCache) cleanupExpired() {
	gc.mutex.Lock()
	defer gc.mutex.Unlock()

	removed := 0
	now := time.Now()
	for key, entry := range gc.cache {
		if now.Sub(entry.CreatedAt) > gc.maxAge {
			delete(gc.cache, key)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("GuildCache: Cleaned up %d expired entries", removed)
	}
}

// Stop shuts down the cleanup goroutine. Safe to call more than once.
func (gc *GuildCache) Stop() {
	gc.stopOnce.Do(func() {
		close(gc.stopCleanup)
	})
}
