// Package units implements the compilation unit manager: ownership of all
// units across files, their bidirectional dependency edges, and transitive
// affected-set queries.
package units

import (
	"slices"
	"sync"

	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/zerr"
)

// Manager owns every compilation unit the engine knows about. It maintains a
// per-file index for range queries and keeps Dependencies/Dependents exact
// transposes of each other: every mutating operation updates both sides of an
// edge under the same lock.
type Manager struct {
	mu        sync.RWMutex
	units     map[string]*domain.CompilationUnit
	fileUnits map[domain.InternedString][]string // insertion order per file
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		units:     make(map[string]*domain.CompilationUnit),
		fileUnits: make(map[domain.InternedString][]string),
	}
}

// Add registers a unit. It returns an error if a unit with the same ID
// already exists.
func (m *Manager) Add(unit *domain.CompilationUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.units[unit.ID]; exists {
		return zerr.With(zerr.Wrap(domain.ErrUnitAlreadyExists, "register unit"), "unit_id", unit.ID)
	}

	m.units[unit.ID] = unit
	m.fileUnits[unit.FilePath] = append(m.fileUnits[unit.FilePath], unit.ID)
	return nil
}

// Update replaces the stored unit for id. Unknown IDs are a no-op.
func (m *Manager) Update(id string, unit *domain.CompilationUnit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.units[id]; exists {
		m.units[id] = unit
	}
}

// Remove deletes a unit, severs it from the file index, and scrubs it from
// the edge lists of every unit it was connected to, so no dangling edge
// survives. Unknown IDs are a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *Manager) removeLocked(id string) {
	unit, exists := m.units[id]
	if !exists {
		return
	}

	ids := m.fileUnits[unit.FilePath]
	ids = slices.DeleteFunc(ids, func(s string) bool { return s == id })
	if len(ids) == 0 {
		delete(m.fileUnits, unit.FilePath)
	} else {
		m.fileUnits[unit.FilePath] = ids
	}

	for _, depID := range unit.Dependencies {
		if dep, ok := m.units[depID]; ok {
			dep.Dependents = slices.DeleteFunc(dep.Dependents, func(s string) bool { return s == id })
		}
	}
	for _, depID := range unit.Dependents {
		if dep, ok := m.units[depID]; ok {
			dep.Dependencies = slices.DeleteFunc(dep.Dependencies, func(s string) bool { return s == id })
		}
	}

	delete(m.units, id)
}

// RemoveFile deletes every unit registered for path. Edges owned by units in
// other files are scrubbed one removal at a time, exactly as Remove does.
func (m *Manager) RemoveFile(path domain.InternedString) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range slices.Clone(m.fileUnits[path]) {
		m.removeLocked(id)
	}
}

// Get returns the unit for id. The pointer is borrowed: the Manager remains
// the owner and callers must not hold it across mutations.
func (m *Manager) Get(id string) (*domain.CompilationUnit, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	unit, ok := m.units[id]
	return unit, ok
}

// UnitsInFile returns all units for a file sorted by StartLine ascending,
// ties broken by insertion order.
func (m *Manager) UnitsInFile(path domain.InternedString) []*domain.CompilationUnit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unitsInFileLocked(path)
}

func (m *Manager) unitsInFileLocked(path domain.InternedString) []*domain.CompilationUnit {
	ids := m.fileUnits[path]
	result := make([]*domain.CompilationUnit, 0, len(ids))
	for _, id := range ids {
		if unit, ok := m.units[id]; ok {
			result = append(result, unit)
		}
	}
	slices.SortStableFunc(result, func(a, b *domain.CompilationUnit) int {
		return a.StartLine - b.StartLine
	})
	return result
}

// UnitsInRange returns the units of a file whose line range overlaps
// [start, end], inclusive on both sides.
func (m *Manager) UnitsInRange(path domain.InternedString, start, end int) []*domain.CompilationUnit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.CompilationUnit
	for _, unit := range m.unitsInFileLocked(path) {
		if unit.Overlaps(start, end) {
			result = append(result, unit)
		}
	}
	return result
}

// AddDependency records that from reads/uses to, updating both edge lists
// atomically. It is idempotent; if either endpoint is unknown it is a no-op.
func (m *Manager) AddDependency(fromID, toID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, okFrom := m.units[fromID]
	to, okTo := m.units[toID]
	if !okFrom || !okTo {
		return
	}

	if !slices.Contains(from.Dependencies, toID) {
		from.Dependencies = append(from.Dependencies, toID)
	}
	if !slices.Contains(to.Dependents, fromID) {
		to.Dependents = append(to.Dependents, fromID)
	}
}

// RemoveDependency severs the from→to edge on both sides. Missing endpoints
// or absent edges are a no-op.
func (m *Manager) RemoveDependency(fromID, toID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if from, ok := m.units[fromID]; ok {
		from.Dependencies = slices.DeleteFunc(from.Dependencies, func(s string) bool { return s == toID })
	}
	if to, ok := m.units[toID]; ok {
		to.Dependents = slices.DeleteFunc(to.Dependents, func(s string) bool { return s == fromID })
	}
}

// Dependencies returns a copy of the forward edge list for id.
func (m *Manager) Dependencies(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if unit, ok := m.units[id]; ok {
		return slices.Clone(unit.Dependencies)
	}
	return nil
}

// Dependents returns a copy of the reverse edge list for id.
func (m *Manager) Dependents(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if unit, ok := m.units[id]; ok {
		return slices.Clone(unit.Dependents)
	}
	return nil
}

// AffectedUnits returns the transitive closure over Dependents edges starting
// at changedID, in traversal order, excluding the seed itself. The graph is
// not guaranteed acyclic, so the walk is iterative with a visited set.
func (m *Manager) AffectedUnits(changedID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visited := map[string]bool{changedID: true}
	stack := []string{changedID}
	var affected []string

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		unit, ok := m.units[id]
		if !ok {
			continue
		}
		for _, depID := range unit.Dependents {
			if visited[depID] {
				continue
			}
			visited[depID] = true
			affected = append(affected, depID)
			stack = append(stack, depID)
		}
	}

	return affected
}

// ForEach calls fn for every unit. The callback must not mutate the Manager.
func (m *Manager) ForEach(fn func(*domain.CompilationUnit)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, unit := range m.units {
		fn(unit)
	}
}

// Len returns the number of registered units.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.units)
}

// Clear removes every unit and index entry.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.units = make(map[string]*domain.CompilationUnit)
	m.fileUnits = make(map[domain.InternedString][]string)
}
