// Package config provides the configuration loader for grain.
package config

import (
	"os"
	"path/filepath"

	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the configuration file looked up in the working directory.
const DefaultFilename = "grain.yaml"

// defaultCacheDir is used when the configuration does not set cacheDir.
const defaultCacheDir = ".grain"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Filename string
}

// NewLoader creates a Loader for the default filename.
func NewLoader() *Loader {
	return &Loader{Filename: DefaultFilename}
}

// Load reads the configuration from the given working directory.
func (l *Loader) Load(cwd string) (*domain.Project, error) {
	path := filepath.Join(cwd, l.Filename)

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read config file")
	}

	var gf Grainfile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}

	project := &domain.Project{
		Root:     cwd,
		CacheDir: gf.CacheDir,
		Workers:  gf.Workers,
		Compiler: gf.Compiler,
	}
	if project.CacheDir == "" {
		project.CacheDir = defaultCacheDir
	}
	if !filepath.IsAbs(project.CacheDir) {
		project.CacheDir = filepath.Join(cwd, project.CacheDir)
	}

	for _, fileDTO := range gf.Files {
		spec, err := buildFileSpec(fileDTO)
		if err != nil {
			return nil, err
		}
		project.Files = append(project.Files, spec)
	}

	return project, nil
}

func buildFileSpec(dto FileDTO) (domain.SourceSpec, error) {
	if dto.Path == "" {
		return domain.SourceSpec{}, zerr.New("file entry missing path")
	}

	spec := domain.SourceSpec{Path: domain.NewInternedString(dto.Path)}

	names := make(map[string]bool, len(dto.Units))
	for _, u := range dto.Units {
		if u.Name == "" {
			return domain.SourceSpec{}, zerr.With(zerr.New("unit missing name"), "file", dto.Path)
		}
		if names[u.Name] {
			err := zerr.With(zerr.New("duplicate unit name"), "file", dto.Path)
			return domain.SourceSpec{}, zerr.With(err, "unit", u.Name)
		}
		names[u.Name] = true

		if u.Start < 1 || u.End < u.Start {
			err := zerr.With(zerr.New("invalid unit line range"), "file", dto.Path)
			err = zerr.With(err, "unit", u.Name)
			err = zerr.With(err, "start", u.Start)
			return domain.SourceSpec{}, zerr.With(err, "end", u.End)
		}

		spec.Units = append(spec.Units, domain.UnitSpec{
			Name:      u.Name,
			Type:      domain.ParseUnitType(u.Type),
			StartLine: u.Start,
			EndLine:   u.End,
			DependsOn: u.DependsOn,
		})
	}

	// Dependencies must name sibling units.
	for _, u := range spec.Units {
		for _, dep := range u.DependsOn {
			if !names[dep] {
				err := zerr.With(zerr.New("missing dependency"), "file", dto.Path)
				err = zerr.With(err, "unit", u.Name)
				return domain.SourceSpec{}, zerr.With(err, "missing_dependency", dep)
			}
		}
	}

	return spec, nil
}
