package domain

import "time"

// CacheEntry is one persisted compilation artifact, keyed by unit ID.
// An entry is reusable only while ContentHash still equals the owning unit's
// current hash; stale entries are shadowed by that check, never auto-purged.
type CacheEntry struct {
	UnitID      string `json:"unit_id"`
	ContentHash string `json:"content_hash,omitzero"`
	Output      string `json:"output,omitzero"`
	Timestamp   int64  `json:"timestamp,omitzero"`

	AccessCount int   `json:"access_count,omitzero"`
	LastAccess  int64 `json:"last_access,omitzero"`
}

// Touch records an access to the entry.
func (e *CacheEntry) Touch(now int64) {
	e.AccessCount++
	e.LastAccess = now
}

// CompileEvent is one line of the bounded compile history the cache keeps
// alongside its entries.
type CompileEvent struct {
	UnitID      string `json:"unit_id"`
	ContentHash string `json:"content_hash,omitzero"`
	Timestamp   int64  `json:"timestamp,omitzero"`
	Action      string `json:"action"` // "compile" or "invalidate"
}

// CacheStats is an aggregate view over the cache.
type CacheStats struct {
	Entries    int
	TotalBytes int64
	Hits       uint64
	Misses     uint64
}

// HitRate returns the fraction of Get calls that hit, or 0 when the cache has
// never been read.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// HotUnit pairs a unit ID with its access count for the hot-units report.
type HotUnit struct {
	UnitID      string
	AccessCount int
}

// TimestampMillis returns the given time as Unix milliseconds, the timestamp
// unit used throughout persisted state.
func TimestampMillis(t time.Time) int64 {
	return t.UnixMilli()
}
