// Package app implements the application layer for grain.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/grain/internal/engine/compilepool"
	"go.trai.ch/grain/internal/engine/incremental"
	"go.trai.ch/zerr"
)

// outputDirName is where combined artifacts land inside the cache directory.
const outputDirName = "out"

// App drives a full incremental build: it carves units from the configured
// manifests, feeds source updates to the engine, runs the compile pool over
// the resulting pending set, and emits combined artifacts.
type App struct {
	project *domain.Project
	engine  *incremental.Engine
	pool    *compilepool.Pool
	cache   ports.ArtifactCache
	hasher  ports.ContentHasher
	logger  ports.Logger
}

// New creates a new App instance.
func New(
	project *domain.Project,
	engine *incremental.Engine,
	pool *compilepool.Pool,
	artifacts ports.ArtifactCache,
	hasher ports.ContentHasher,
	logger ports.Logger,
) *App {
	return &App{
		project: project,
		engine:  engine,
		pool:    pool,
		cache:   artifacts,
		hasher:  hasher,
		logger:  logger,
	}
}

// Run builds the named files, or every configured file when none are given.
func (a *App) Run(ctx context.Context, paths []string) error {
	specs, err := a.selectFiles(paths)
	if err != nil {
		return err
	}

	if err := a.engine.LoadState(); err != nil {
		return zerr.Wrap(err, "failed to load build state")
	}

	total := 0
	for _, spec := range specs {
		pending, errUpdate := a.updateFile(spec)
		if errUpdate != nil {
			return errUpdate
		}
		total += pending
	}
	a.logger.Info(fmt.Sprintf("%d unit(s) pending compilation", total))

	if err := a.pool.Run(ctx); err != nil {
		return zerr.Wrap(err, "compilation failed")
	}

	for _, spec := range specs {
		if err := a.writeOutput(spec.Path); err != nil {
			return err
		}
	}

	if err := a.engine.SaveState(); err != nil {
		return zerr.Wrap(err, "failed to save build state")
	}
	return nil
}

// selectFiles resolves the requested paths against the configuration. An
// empty request means every configured file.
func (a *App) selectFiles(paths []string) ([]*domain.SourceSpec, error) {
	if len(paths) == 0 {
		if len(a.project.Files) == 0 {
			return nil, domain.ErrNoFilesSpecified
		}
		specs := make([]*domain.SourceSpec, len(a.project.Files))
		for i := range a.project.Files {
			specs[i] = &a.project.Files[i]
		}
		return specs, nil
	}

	specs := make([]*domain.SourceSpec, 0, len(paths))
	for _, p := range paths {
		spec := a.project.File(p)
		if spec == nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrFileNotConfigured, "resolve target"), "path", p)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// updateFile reads the file's current content, re-registers its units from
// the manifest, and submits the content to the engine. It returns how many
// units the update left pending.
func (a *App) updateFile(spec *domain.SourceSpec) (int, error) {
	raw, err := os.ReadFile(filepath.Join(a.project.Root, spec.Path.String()))
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to read source file"), "path", spec.Path.String())
	}
	content := string(raw)

	carved, deps, err := a.carve(spec, content)
	if err != nil {
		return 0, err
	}
	if err := a.engine.RegisterUnits(spec.Path, carved); err != nil {
		return 0, zerr.Wrap(err, "failed to register units")
	}
	for _, d := range deps {
		a.engine.AddDependency(d[0], d[1])
	}

	records := a.engine.UpdateSource(spec.Path, content)
	for _, rec := range records {
		a.logger.Info(fmt.Sprintf("%s: %s (%s)", rec.ChangeType, rec.UnitID, rec.Reason))
	}
	return len(records), nil
}

// carve materializes the manifest's unit specs against the file content and
// resolves dependsOn names to unit IDs.
func (a *App) carve(spec *domain.SourceSpec, content string) ([]*domain.CompilationUnit, [][2]string, error) {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	carved := make([]*domain.CompilationUnit, 0, len(spec.Units))
	idByName := make(map[string]string, len(spec.Units))
	for _, us := range spec.Units {
		if us.EndLine > len(lines) {
			err := zerr.With(zerr.New("unit range exceeds file length"), "path", spec.Path.String())
			err = zerr.With(err, "unit", us.Name)
			err = zerr.With(err, "end", us.EndLine)
			return nil, nil, zerr.With(err, "lines", len(lines))
		}
		text := strings.Join(lines[us.StartLine-1:us.EndLine], "\n")
		h := a.hasher.HashContent(text)
		u := &domain.CompilationUnit{
			ID:          domain.UnitID(spec.Path.String(), us.StartLine, us.EndLine, h),
			FilePath:    spec.Path,
			StartLine:   us.StartLine,
			EndLine:     us.EndLine,
			Type:        us.Type,
			Name:        us.Name,
			ContentHash: h,
		}
		carved = append(carved, u)
		idByName[us.Name] = u.ID
	}

	var deps [][2]string
	for _, us := range spec.Units {
		for _, dep := range us.DependsOn {
			deps = append(deps, [2]string{idByName[us.Name], idByName[dep]})
		}
	}
	return carved, deps, nil
}

// writeOutput writes the file's combined artifact under the cache directory,
// mirroring the source path.
func (a *App) writeOutput(path domain.InternedString) error {
	output := a.engine.CombinedOutput(path)
	target := filepath.Join(a.project.CacheDir, outputDirName, path.String()+".out")

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return zerr.Wrap(err, "failed to create output directory")
	}
	if err := os.WriteFile(target, []byte(output), 0o644); err != nil {
		return zerr.Wrap(err, "failed to write combined output")
	}
	a.logger.Info("wrote " + target)
	return nil
}

// Stats reports cache effectiveness for the stats command.
func (a *App) Stats() (domain.CacheStats, []domain.HotUnit) {
	return a.cache.Stats(), a.cache.HotUnits(10)
}

// History returns the most recent compile and invalidate events.
func (a *App) History(limit int) []domain.CompileEvent {
	return a.cache.History(limit)
}

// Clean drops all cached artifacts and the persisted unit graph.
func (a *App) Clean() error {
	a.cache.InvalidateAll()
	if err := a.cache.Save(); err != nil {
		return zerr.Wrap(err, "failed to persist emptied cache")
	}
	if err := a.engine.ResetState(); err != nil {
		return err
	}
	a.logger.Info("cache cleared")
	return nil
}
