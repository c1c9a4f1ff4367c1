// Package incremental orchestrates change detection, the unit graph, and the
// artifact cache into minimal recompilation plans.
package incremental

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/grain/internal/engine/detect"
	"go.trai.ch/grain/internal/engine/units"
	"go.trai.ch/zerr"
)

// stateFileName holds the serialized unit graph inside the cache directory.
const stateFileName = "grain_state.dat"

// Engine tracks one snapshot per source file and turns content updates into
// an ordered set of units that need recompilation. All public methods are
// safe for concurrent use.
type Engine struct {
	units    *units.Manager
	detector *detect.Detector
	cache    ports.ArtifactCache
	hasher   ports.ContentHasher
	logger   ports.Logger

	stateDir string

	mu         sync.Mutex
	snapshots  map[domain.InternedString]*domain.Snapshot
	sources    map[domain.InternedString][]string
	pending    []string
	pendingSet map[string]struct{}
}

// New creates an Engine persisting its unit graph under stateDir.
func New(
	manager *units.Manager,
	detector *detect.Detector,
	cache ports.ArtifactCache,
	hasher ports.ContentHasher,
	logger ports.Logger,
	stateDir string,
) *Engine {
	return &Engine{
		units:      manager,
		detector:   detector,
		cache:      cache,
		hasher:     hasher,
		logger:     logger,
		stateDir:   stateDir,
		snapshots:  make(map[domain.InternedString]*domain.Snapshot),
		sources:    make(map[domain.InternedString][]string),
		pendingSet: make(map[string]struct{}),
	}
}

// RegisterUnits replaces the unit set of a file. Units that existed before
// but are gone from the new set have their cached artifacts invalidated.
// Dependency edges of the file's previous units are severed; callers wire
// edges again after registering.
func (e *Engine) RegisterUnits(path domain.InternedString, newUnits []*domain.CompilationUnit) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.snapshots[path]; ok {
		incoming := &domain.Snapshot{
			FilePath: path,
			Units:    make(map[string]domain.CompilationUnit, len(newUnits)),
		}
		for _, u := range newUnits {
			incoming.Units[u.ID] = u.Clone()
		}
		for _, rec := range e.detector.DetectUnitChanges(old, incoming) {
			if rec.ChangeType == domain.UnitStateDeleted {
				e.cache.Invalidate(rec.UnitID)
				e.dequeue(rec.UnitID)
			}
		}
	}

	e.units.RemoveFile(path)
	for _, u := range newUnits {
		if err := e.units.Add(u); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSource diffs the file's new content against the previous snapshot
// and marks the minimal unit set for recompilation: units overlapping
// changed lines become modified, their transitive dependents become
// affected, and sub-unit work inside a function or class expands to the
// enclosing structural unit. The first update of a file treats every unit
// as added.
func (e *Engine) UpdateSource(path domain.InternedString, content string) []domain.ChangeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	newSnap := e.detector.Snapshot(path.String(), content)
	lines := sliceLines(content)
	e.sources[path] = lines

	fileUnits := e.units.UnitsInFile(path)

	old, ok := e.snapshots[path]
	if !ok {
		records := make([]domain.ChangeRecord, 0, len(fileUnits))
		for _, u := range fileUnits {
			u.State = domain.UnitStateAdded
			u.CacheValid = false
			e.enqueue(u.ID)
			records = append(records, domain.ChangeRecord{
				UnitID:     u.ID,
				ChangeType: domain.UnitStateAdded,
				NewStart:   u.StartLine,
				NewEnd:     u.EndLine,
				Reason:     "initial build",
			})
		}
		e.commitSnapshot(newSnap, fileUnits)
		return records
	}

	var records []domain.ChangeRecord

	// Units overlapping a changed line are modified.
	modified := make([]string, 0)
	modifiedSet := make(map[string]struct{})
	for _, line := range e.detector.ChangedLines(old, newSnap) {
		for _, u := range e.units.UnitsInRange(path, line, line) {
			if _, seen := modifiedSet[u.ID]; seen {
				continue
			}
			modifiedSet[u.ID] = struct{}{}
			modified = append(modified, u.ID)
		}
	}

	for _, id := range modified {
		u, okUnit := e.units.Get(id)
		if !okUnit {
			continue
		}
		oldStart, oldEnd := u.StartLine, u.EndLine
		u.State = domain.UnitStateModified
		u.CacheValid = false
		u.ContentHash = e.hasher.HashContent(unitContent(lines, u.StartLine, u.EndLine))
		e.cache.Invalidate(id)
		e.enqueue(id)
		records = append(records, domain.ChangeRecord{
			UnitID:     id,
			ChangeType: domain.UnitStateModified,
			OldStart:   oldStart,
			OldEnd:     oldEnd,
			NewStart:   u.StartLine,
			NewEnd:     u.EndLine,
			Reason:     "content changed",
		})
	}

	// Transitive dependents of every modified unit become affected.
	affected := make([]string, 0)
	affectedSet := make(map[string]struct{})
	for _, id := range modified {
		for _, dep := range e.units.AffectedUnits(id) {
			if _, isModified := modifiedSet[dep]; isModified {
				continue
			}
			if _, seen := affectedSet[dep]; seen {
				continue
			}
			affectedSet[dep] = struct{}{}
			affected = append(affected, dep)
		}
	}

	for _, id := range affected {
		records = append(records, e.markAffected(id, "dependency changed"))
	}

	// Work scoped below a function or class expands to the whole enclosing
	// unit, since the external compiler consumes structural units.
	for _, id := range append(append([]string{}, modified...), affected...) {
		u, okUnit := e.units.Get(id)
		if !okUnit || u.Type.IsStructural() {
			continue
		}
		enc := e.enclosingStructural(path, u)
		if enc == nil {
			continue
		}
		if _, isModified := modifiedSet[enc.ID]; isModified {
			continue
		}
		if _, isAffected := affectedSet[enc.ID]; isAffected {
			continue
		}
		affectedSet[enc.ID] = struct{}{}
		records = append(records, e.markAffected(enc.ID, "encloses changed unit"))
	}

	e.commitSnapshot(newSnap, fileUnits)
	return records
}

func (e *Engine) markAffected(id, reason string) domain.ChangeRecord {
	u, ok := e.units.Get(id)
	if ok {
		u.State = domain.UnitStateAffected
		u.CacheValid = false
		e.cache.Invalidate(id)
		e.enqueue(id)
	}
	rec := domain.ChangeRecord{
		UnitID:     id,
		ChangeType: domain.UnitStateAffected,
		Reason:     reason,
	}
	if ok {
		rec.OldStart, rec.OldEnd = u.StartLine, u.EndLine
		rec.NewStart, rec.NewEnd = u.StartLine, u.EndLine
	}
	return rec
}

// enclosingStructural returns the first function or class unit, in line
// order, that fully encloses u.
func (e *Engine) enclosingStructural(path domain.InternedString, u *domain.CompilationUnit) *domain.CompilationUnit {
	for _, candidate := range e.units.UnitsInFile(path) {
		if candidate.ID == u.ID || !candidate.Type.IsStructural() {
			continue
		}
		if candidate.Encloses(u) {
			return candidate
		}
	}
	return nil
}

func (e *Engine) commitSnapshot(snap *domain.Snapshot, fileUnits []*domain.CompilationUnit) {
	for _, u := range fileUnits {
		snap.Units[u.ID] = u.Clone()
	}
	e.snapshots[snap.FilePath] = snap
}

// AddDependency records that fromID reads toID. Both endpoints must already
// be registered; unknown IDs are a no-op.
func (e *Engine) AddDependency(fromID, toID string) {
	e.units.AddDependency(fromID, toID)
}

// UnitsToCompile returns the pending units in the order they were marked.
func (e *Engine) UnitsToCompile() []*domain.CompilationUnit {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*domain.CompilationUnit, 0, len(e.pending))
	for _, id := range e.pending {
		if u, ok := e.units.Get(id); ok {
			out = append(out, u)
		}
	}
	return out
}

// UnitContent returns the unit's source text sliced from the latest update.
func (e *Engine) UnitContent(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.units.Get(id)
	if !ok {
		return "", false
	}
	lines, ok := e.sources[u.FilePath]
	if !ok {
		return "", false
	}
	return unitContent(lines, u.StartLine, u.EndLine), true
}

// MarkCompiled records a finished compilation: the artifact is stored in the
// cache keyed by the unit's current content hash and the unit leaves the
// pending set. Unknown IDs are a no-op.
func (e *Engine) MarkCompiled(id, output string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.units.Get(id)
	if !ok {
		return
	}
	u.CachedOutput = output
	u.CacheValid = true
	u.CacheTimestamp = domain.TimestampMillis(time.Now())
	u.State = domain.UnitStateUnchanged
	e.cache.Put(id, output, u.ContentHash)
	e.dequeue(id)

	if snap, okSnap := e.snapshots[u.FilePath]; okSnap {
		snap.Units[id] = u.Clone()
	}
}

// CombinedOutput concatenates the artifacts of a file's units in line order.
// A unit contributes its own valid output, else a hash-valid cache entry;
// units with neither are skipped.
func (e *Engine) CombinedOutput(path domain.InternedString) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	parts := make([]string, 0)
	for _, u := range e.units.UnitsInFile(path) {
		switch {
		case u.CacheValid && u.CachedOutput != "":
			parts = append(parts, u.CachedOutput)
		case e.cache.IsValid(u.ID, u.ContentHash):
			parts = append(parts, e.cache.Get(u.ID))
		}
	}
	return strings.Join(parts, "\n")
}

// PendingCount reports how many units await compilation.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// SaveState persists the unit graph and the artifact cache.
func (e *Engine) SaveState() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(e.stateDir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create state directory")
	}

	f, err := os.Create(filepath.Join(e.stateDir, stateFileName))
	if err != nil {
		return zerr.Wrap(err, "failed to create state file")
	}
	defer f.Close()

	if err := e.units.Serialize(f); err != nil {
		return zerr.Wrap(err, "failed to serialize unit graph")
	}
	if err := f.Close(); err != nil {
		return zerr.Wrap(err, "failed to flush state file")
	}

	return e.cache.Save()
}

// LoadState restores the unit graph and the artifact cache. A missing state
// file is a clean start; a corrupt one degrades to an empty graph with a
// warning rather than failing the run.
func (e *Engine) LoadState() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	path := filepath.Join(e.stateDir, stateFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return e.cache.Load()
		}
		return zerr.Wrap(err, "failed to open state file")
	}
	defer f.Close()

	if err := e.units.Deserialize(f); err != nil {
		e.logger.Warn("state file corrupt, starting with an empty unit graph: " + err.Error())
		e.units.Clear()
	}

	return e.cache.Load()
}

// ResetState discards the in-memory unit graph, snapshots, and pending set,
// and removes the persisted state file.
func (e *Engine) ResetState() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.units.Clear()
	e.snapshots = make(map[domain.InternedString]*domain.Snapshot)
	e.sources = make(map[domain.InternedString][]string)
	e.pending = nil
	e.pendingSet = make(map[string]struct{})

	if err := os.Remove(filepath.Join(e.stateDir, stateFileName)); err != nil && !os.IsNotExist(err) {
		return zerr.Wrap(err, "failed to remove state file")
	}
	return nil
}

func (e *Engine) enqueue(id string) {
	if _, ok := e.pendingSet[id]; ok {
		return
	}
	e.pendingSet[id] = struct{}{}
	e.pending = append(e.pending, id)
}

func (e *Engine) dequeue(id string) {
	if _, ok := e.pendingSet[id]; !ok {
		return
	}
	delete(e.pendingSet, id)
	for i, p := range e.pending {
		if p == id {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			break
		}
	}
}

// unitContent joins the 1-based inclusive line range, clamped to the file.
func unitContent(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func sliceLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
