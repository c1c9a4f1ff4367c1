package domain

// Project is the loaded grain.yaml configuration: where state lives, how to
// invoke the external compiler, and the unit boundaries the out-of-engine
// parser carved for each source file.
type Project struct {
	// Root is the directory the configuration was loaded from.
	Root string
	// CacheDir holds the artifact cache and the serialized unit graph.
	CacheDir string
	// Workers bounds parallel unit compilation. Zero means NumCPU.
	Workers int
	// Compiler is the external command invoked per unit, receiving the unit
	// content on stdin and emitting the artifact on stdout.
	Compiler []string
	// Files lists the configured source files in declaration order.
	Files []SourceSpec
}

// SourceSpec is one configured source file with its carved unit boundaries.
type SourceSpec struct {
	Path  InternedString
	Units []UnitSpec
}

// UnitSpec is a unit boundary as declared in the manifest. Names are unique
// within a file; DependsOn references sibling units by name and is resolved
// to unit IDs once content hashes are known.
type UnitSpec struct {
	Name      string
	Type      UnitType
	StartLine int
	EndLine   int
	DependsOn []string
}

// File returns the spec for the given path, or nil when not configured.
func (p *Project) File(path string) *SourceSpec {
	for i := range p.Files {
		if p.Files[i].Path.String() == path {
			return &p.Files[i]
		}
	}
	return nil
}
