package units

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/zerr"
)

// Serialize writes a count-prefixed, tab-delimited dump of every unit and its
// forward dependency list. Reverse edges are not written; Deserialize rebuilds
// them from the forward lists. Output is deterministic: files sorted by path,
// units in file order.
func (m *Manager) Serialize(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d\n", len(m.units)); err != nil {
		return zerr.Wrap(err, "failed to write unit count")
	}

	paths := make([]domain.InternedString, 0, len(m.fileUnits))
	for path := range m.fileUnits {
		paths = append(paths, path)
	}
	slices.SortFunc(paths, func(a, b domain.InternedString) int {
		return strings.Compare(a.String(), b.String())
	})

	for _, path := range paths {
		for _, id := range m.fileUnits[path] {
			unit := m.units[id]
			if err := writeUnit(bw, unit); err != nil {
				return err
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return zerr.Wrap(err, "failed to flush unit dump")
	}
	return nil
}

func writeUnit(w io.Writer, u *domain.CompilationUnit) error {
	fields := []string{
		u.ID,
		u.FilePath.String(),
		strconv.Itoa(u.StartLine),
		strconv.Itoa(u.EndLine),
		u.Type.String(),
		u.Name,
		u.ContentHash,
		strconv.Itoa(len(u.Dependencies)),
	}
	fields = append(fields, u.Dependencies...)

	if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write unit record"), "unit_id", u.ID)
	}
	return nil
}

// Deserialize replaces the Manager's contents with the units read from r,
// rebuilding reverse edges from the forward dependency lists alone.
func (m *Manager) Deserialize(r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.units = make(map[string]*domain.CompilationUnit)
	m.fileUnits = make(map[domain.InternedString][]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return zerr.Wrap(err, "failed to read unit dump")
		}
		// Empty input reconstructs an empty manager.
		return nil
	}

	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return zerr.Wrap(domain.ErrCorruptState, "bad unit count")
	}

	for i := 0; i < count; i++ {
		if !scanner.Scan() {
			err := zerr.Wrap(domain.ErrCorruptState, "truncated unit dump")
			err = zerr.With(err, "expected", count)
			return zerr.With(err, "got", i)
		}
		unit, err := parseUnit(scanner.Text())
		if err != nil {
			return err
		}
		if _, exists := m.units[unit.ID]; exists {
			return zerr.With(zerr.Wrap(domain.ErrCorruptState, "duplicate unit"), "unit_id", unit.ID)
		}
		m.units[unit.ID] = unit
		m.fileUnits[unit.FilePath] = append(m.fileUnits[unit.FilePath], unit.ID)
	}
	if err := scanner.Err(); err != nil {
		return zerr.Wrap(err, "failed to read unit dump")
	}

	// Rebuild reverse edges. Forward references to units missing from the
	// dump are dropped so no edge dangles.
	for _, unit := range m.units {
		kept := unit.Dependencies[:0]
		for _, depID := range unit.Dependencies {
			dep, ok := m.units[depID]
			if !ok {
				continue
			}
			kept = append(kept, depID)
			dep.Dependents = append(dep.Dependents, unit.ID)
		}
		unit.Dependencies = kept
	}

	return nil
}

func parseUnit(line string) (*domain.CompilationUnit, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, zerr.With(zerr.Wrap(domain.ErrCorruptState, "short unit record"), "line", line)
	}

	startLine, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCorruptState, "bad start line"), "line", line)
	}
	endLine, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCorruptState, "bad end line"), "line", line)
	}
	depCount, err := strconv.Atoi(fields[7])
	if err != nil || depCount < 0 || len(fields) < 8+depCount {
		return nil, zerr.With(zerr.Wrap(domain.ErrCorruptState, "bad dependency count"), "line", line)
	}

	return &domain.CompilationUnit{
		ID:           fields[0],
		FilePath:     domain.NewInternedString(fields[1]),
		StartLine:    startLine,
		EndLine:      endLine,
		Type:         domain.ParseUnitType(fields[4]),
		Name:         fields[5],
		ContentHash:  fields[6],
		Dependencies: slices.Clone(fields[8 : 8+depCount]),
		State:        domain.UnitStateUnknown,
	}, nil
}
