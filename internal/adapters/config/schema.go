package config

// Grainfile represents the structure of the grain.yaml configuration file.
type Grainfile struct {
	Version  string    `yaml:"version"`
	CacheDir string    `yaml:"cacheDir"`
	Workers  int       `yaml:"workers"`
	Compiler []string  `yaml:"compiler"`
	Files    []FileDTO `yaml:"files"`
}

// FileDTO represents one source file and the unit boundaries the parser
// carved for it.
type FileDTO struct {
	Path  string    `yaml:"path"`
	Units []UnitDTO `yaml:"units"`
}

// UnitDTO represents a unit boundary declaration. Lines are 1-based and
// inclusive; dependsOn names sibling units in the same file.
type UnitDTO struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Start     int      `yaml:"start"`
	End       int      `yaml:"end"`
	DependsOn []string `yaml:"dependsOn"`
}
