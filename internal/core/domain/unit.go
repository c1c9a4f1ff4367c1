// Package domain contains the core domain models for the incremental
// compilation engine: compilation units, snapshots, and change records.
package domain

import "fmt"

// UnitType classifies a compilation unit by the syntactic construct it was
// carved from. The engine only consults it for structural-boundary expansion;
// everything else treats units uniformly.
type UnitType int

const (
	// UnitTypeLine is a single source line.
	UnitTypeLine UnitType = iota
	// UnitTypeStatement is a simple statement (assignment, expression, call).
	UnitTypeStatement
	// UnitTypeFunction is a function or method definition.
	UnitTypeFunction
	// UnitTypeClass is a class definition.
	UnitTypeClass
	// UnitTypeModule is module-level code outside any definition.
	UnitTypeModule
	// UnitTypeImport is an import statement.
	UnitTypeImport
	// UnitTypeDecorator is a decorator line attached to a definition.
	UnitTypeDecorator
	// UnitTypeBlock is a compound block (loop, conditional, with).
	UnitTypeBlock
)

// IsStructural reports whether the unit type is a structural boundary.
// A change inside a structural unit recompiles the whole unit; changes are
// never expanded past a structural unit.
func (t UnitType) IsStructural() bool {
	return t == UnitTypeFunction || t == UnitTypeClass
}

// String returns the string representation of the UnitType.
func (t UnitType) String() string {
	switch t {
	case UnitTypeLine:
		return "line"
	case UnitTypeStatement:
		return "statement"
	case UnitTypeFunction:
		return "function"
	case UnitTypeClass:
		return "class"
	case UnitTypeModule:
		return "module"
	case UnitTypeImport:
		return "import"
	case UnitTypeDecorator:
		return "decorator"
	case UnitTypeBlock:
		return "block"
	default:
		return "statement"
	}
}

// ParseUnitType converts a string to a UnitType, defaulting to statement if
// unknown. Used at serialization and configuration boundaries.
func ParseUnitType(s string) UnitType {
	switch s {
	case "line":
		return UnitTypeLine
	case "statement":
		return UnitTypeStatement
	case "function":
		return UnitTypeFunction
	case "class":
		return UnitTypeClass
	case "module":
		return UnitTypeModule
	case "import":
		return UnitTypeImport
	case "decorator":
		return UnitTypeDecorator
	case "block":
		return UnitTypeBlock
	default:
		return UnitTypeStatement
	}
}

// UnitState tracks where a unit stands relative to the last snapshot of its file.
type UnitState int

const (
	// UnitStateUnknown means the unit has never been through a source update.
	UnitStateUnknown UnitState = iota
	// UnitStateUnchanged means the unit survived the last update untouched.
	UnitStateUnchanged
	// UnitStateModified means one of the unit's lines changed.
	UnitStateModified
	// UnitStateAdded means the unit appeared in the last update.
	UnitStateAdded
	// UnitStateDeleted means the unit disappeared in the last update.
	UnitStateDeleted
	// UnitStateAffected means a dependency of the unit changed, or the unit
	// encloses a changed sub-unit.
	UnitStateAffected
)

// String returns the string representation of the UnitState.
func (s UnitState) String() string {
	switch s {
	case UnitStateUnchanged:
		return "unchanged"
	case UnitStateModified:
		return "modified"
	case UnitStateAdded:
		return "added"
	case UnitStateDeleted:
		return "deleted"
	case UnitStateAffected:
		return "affected"
	default:
		return "unknown"
	}
}

// CompilationUnit is the smallest schedulable piece of a source file.
//
// Dependencies and Dependents are ordered sets of unit IDs and must remain
// exact transposes of each other across the whole graph. The unit manager is
// the sole owner of units; other components hold borrowed pointers or IDs.
type CompilationUnit struct {
	ID          string
	FilePath    InternedString
	StartLine   int // 1-based, inclusive
	EndLine     int // 1-based, inclusive
	Type        UnitType
	Name        string
	ContentHash string

	Dependencies []string
	Dependents   []string

	State UnitState

	CachedOutput   string
	CacheValid     bool
	CacheTimestamp int64
}

// UnitID derives the stable identifier for a unit from its file path, line
// range, and an 8-character prefix of its content hash.
func UnitID(filePath string, startLine, endLine int, contentHash string) string {
	if len(contentHash) > 8 {
		contentHash = contentHash[:8]
	}
	return fmt.Sprintf("%s:%d:%d:%s", filePath, startLine, endLine, contentHash)
}

// Overlaps reports whether the unit's line range intersects [start, end],
// both ranges inclusive.
func (u *CompilationUnit) Overlaps(start, end int) bool {
	return u.StartLine <= end && u.EndLine >= start
}

// Encloses reports whether the unit's line range wholly contains the other
// unit's range.
func (u *CompilationUnit) Encloses(other *CompilationUnit) bool {
	return u.StartLine <= other.StartLine && u.EndLine >= other.EndLine
}

// Clone returns a deep copy of the unit. Snapshots store clones so that later
// mutations of the live unit do not rewrite history.
func (u *CompilationUnit) Clone() CompilationUnit {
	c := *u
	c.Dependencies = append([]string(nil), u.Dependencies...)
	c.Dependents = append([]string(nil), u.Dependents...)
	return c
}
