// Package cache implements the persistent compilation cache: a
// content-hash-gated key-value store for compiled unit artifacts.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ArtifactCache = (*Cache)(nil)

// cacheFileName is the on-disk cache file inside the cache directory.
const cacheFileName = "grain_cache.json"

// historyLimit bounds the persisted compile history.
const historyLimit = 10000

// Cache implements ports.ArtifactCache backed by a flat JSON file.
//
// An entry never becomes reusable again once its unit's content moves on:
// IsValid compares the stored hash against the caller's current hash and is
// the only reuse authority. Stale entries stay on disk until overwritten or
// invalidated; they are shadowed, not purged.
type Cache struct {
	path   string
	logger ports.Logger

	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
	history []domain.CompileEvent
	hits    uint64
	misses  uint64
}

// persisted is the on-disk layout of the cache file.
type persisted struct {
	Entries map[string]domain.CacheEntry `json:"entries"`
	History []domain.CompileEvent        `json:"history,omitempty"`
}

// New creates a Cache persisting into dir and loads any existing cache file.
func New(dir string, logger ports.Logger) *Cache {
	c := &Cache{
		path:    filepath.Join(filepath.Clean(dir), cacheFileName),
		logger:  logger,
		entries: make(map[string]domain.CacheEntry),
	}
	// Load degrades to an empty cache on any problem; nothing to surface.
	_ = c.Load()
	return c
}

// Has reports whether an entry exists, valid or not. A Has hit alone never
// justifies reuse; callers must go through IsValid.
func (c *Cache) Has(unitID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.entries[unitID]
	return ok
}

// Get returns the stored artifact, or "" when absent. Exactly one of the hit
// or miss counters is bumped per call.
func (c *Cache) Get(unitID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[unitID]
	if !ok {
		c.misses++
		return ""
	}
	c.hits++
	entry.Touch(domain.TimestampMillis(time.Now()))
	c.entries[unitID] = entry
	return entry.Output
}

// Put stores an artifact with the content hash it was built from and records
// a compile event.
func (c *Cache) Put(unitID, output, contentHash string) {
	now := domain.TimestampMillis(time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[unitID] = domain.CacheEntry{
		UnitID:      unitID,
		ContentHash: contentHash,
		Output:      output,
		Timestamp:   now,
		AccessCount: 1,
		LastAccess:  now,
	}
	c.appendEvent(domain.CompileEvent{
		UnitID:      unitID,
		ContentHash: contentHash,
		Timestamp:   now,
		Action:      "compile",
	})
}

// Invalidate removes the entry for the unit and records the invalidation.
// Unknown IDs are a no-op.
func (c *Cache) Invalidate(unitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[unitID]; !ok {
		return
	}
	delete(c.entries, unitID)
	c.appendEvent(domain.CompileEvent{
		UnitID:    unitID,
		Timestamp: domain.TimestampMillis(time.Now()),
		Action:    "invalidate",
	})
}

// InvalidateAll removes every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]domain.CacheEntry)
}

// IsValid reports whether an entry exists whose stored hash equals
// currentHash.
func (c *Cache) IsValid(unitID, currentHash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[unitID]
	return ok && entry.ContentHash == currentHash
}

// HitCount returns the number of Get calls that found an entry.
func (c *Cache) HitCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}

// MissCount returns the number of Get calls that found nothing.
func (c *Cache) MissCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.misses
}

// Stats returns an aggregate view over the cache.
func (c *Cache) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var totalBytes int64
	for _, entry := range c.entries {
		totalBytes += int64(len(entry.Output))
	}
	return domain.CacheStats{
		Entries:    len(c.entries),
		TotalBytes: totalBytes,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

// HotUnits returns up to limit entries ordered by access count descending,
// ties broken by unit ID for determinism.
func (c *Cache) HotUnits(limit int) []domain.HotUnit {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hot := make([]domain.HotUnit, 0, len(c.entries))
	for id, entry := range c.entries {
		hot = append(hot, domain.HotUnit{UnitID: id, AccessCount: entry.AccessCount})
	}
	sort.Slice(hot, func(i, j int) bool {
		if hot[i].AccessCount != hot[j].AccessCount {
			return hot[i].AccessCount > hot[j].AccessCount
		}
		return hot[i].UnitID < hot[j].UnitID
	})
	if limit > 0 && len(hot) > limit {
		hot = hot[:limit]
	}
	return hot
}

// History returns up to limit most recent compile/invalidate events, oldest
// first.
func (c *Cache) History(limit int) []domain.CompileEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	events := c.history
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]domain.CompileEvent, len(events))
	copy(out, events)
	return out
}

func (c *Cache) appendEvent(ev domain.CompileEvent) {
	c.history = append(c.history, ev)
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
}

// Save persists every entry and the bounded history.
func (c *Cache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(persisted{Entries: c.entries, History: c.history}, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		return zerr.Wrap(err, "failed to create cache directory")
	}

	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return zerr.Wrap(err, "failed to write cache file")
	}
	return nil
}

// Load restores the cache file. A missing or corrupt file degrades to an
// empty cache: the condition is logged and nil is returned, per the contract
// that cache loading never fails the caller.
func (c *Cache) Load() error {
	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && c.logger != nil {
			c.logger.Warn("cache file unreadable, starting empty: " + err.Error())
		}
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		if c.logger != nil {
			c.logger.Warn(zerr.With(zerr.Wrap(domain.ErrCorruptCache, "load cache"), "path", c.path).Error() + ": starting empty")
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = p.Entries
	if c.entries == nil {
		c.entries = make(map[string]domain.CacheEntry)
	}
	c.history = p.History
	return nil
}
