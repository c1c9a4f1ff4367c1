package ports

import "go.trai.ch/grain/internal/core/domain"

// ArtifactCache is the content-hash-gated store for compiled unit artifacts.
//
// IsValid is the only authority for reuse decisions; a Has hit alone never
// justifies reusing an artifact. Implementations must be safe under
// concurrent access: compilation workers read and write in parallel.
//
//go:generate go run go.uber.org/mock/mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type ArtifactCache interface {
	// Has reports whether an entry exists for the unit, valid or not.
	Has(unitID string) bool

	// Get returns the stored artifact for the unit, or "" when absent.
	// Every call increments exactly one of the hit or miss counters.
	Get(unitID string) string

	// Put stores an artifact together with the content hash it was built from.
	Put(unitID, output, contentHash string)

	// Invalidate removes the entry for the unit. Unknown IDs are a no-op.
	Invalidate(unitID string)

	// InvalidateAll removes every entry.
	InvalidateAll()

	// IsValid reports whether an entry exists whose stored hash equals
	// currentHash.
	IsValid(unitID, currentHash string) bool

	// HitCount and MissCount report the Get accounting.
	HitCount() uint64
	MissCount() uint64

	// Stats returns an aggregate view over the cache.
	Stats() domain.CacheStats

	// HotUnits returns up to limit entries ordered by access count descending.
	HotUnits(limit int) []domain.HotUnit

	// History returns up to limit most recent compile/invalidate events.
	History(limit int) []domain.CompileEvent

	// Save persists every entry byte-for-byte. Load restores them; a missing
	// or corrupt file degrades to an empty cache instead of failing.
	Save() error
	Load() error
}
