package domain

// Snapshot is a versioned fingerprint of a source file: the whole-content
// hash, per-line hashes for diffing, and the unit records as they stood when
// the snapshot was taken. Exactly one current snapshot is retained per file;
// a new one logically supersedes the old.
type Snapshot struct {
	FilePath    InternedString
	ContentHash string
	LineHashes  []string
	Units       map[string]CompilationUnit
	Timestamp   int64
}

// ChangeRecord describes one unit affected by a source update. Records are
// produced fresh on every update and are not persisted.
type ChangeRecord struct {
	UnitID     string
	ChangeType UnitState
	OldStart   int
	OldEnd     int
	NewStart   int
	NewEnd     int
	Reason     string
}
