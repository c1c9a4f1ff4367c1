// Package compilepool drains the engine's pending set through the external
// compiler with bounded parallelism.
package compilepool

import (
	"context"
	"runtime"

	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/grain/internal/engine/incremental"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Pool compiles pending units concurrently. Units whose artifact is still
// hash-valid in the cache are satisfied without invoking the compiler.
type Pool struct {
	engine   *incremental.Engine
	compiler ports.UnitCompiler
	tracer   ports.Tracer
	cache    ports.ArtifactCache
	workers  int
}

// New creates a Pool running at most workers compilations at once. A
// non-positive worker count falls back to the number of CPUs.
func New(engine *incremental.Engine, compiler ports.UnitCompiler, tracer ports.Tracer, cache ports.ArtifactCache, workers int) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		engine:   engine,
		compiler: compiler,
		tracer:   tracer,
		cache:    cache,
		workers:  workers,
	}
}

// Run compiles every unit currently pending. The first compile error cancels
// the remaining work; units not yet compiled stay pending for a later run.
func (p *Pool) Run(ctx context.Context) error {
	pending := p.engine.UnitsToCompile()
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, len(pending))
	for i, u := range pending {
		ids[i] = u.ID
	}
	p.tracer.EmitPlan(ctx, ids)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, unit := range pending {
		g.Go(func() error {
			_, span := p.tracer.Start(gctx, "compile "+unit.ID)
			defer span.End()
			span.SetAttribute("unit_type", unit.Type.String())

			if p.cache.IsValid(unit.ID, unit.ContentHash) {
				span.Cached()
				p.engine.MarkCompiled(unit.ID, p.cache.Get(unit.ID))
				return nil
			}

			content, ok := p.engine.UnitContent(unit.ID)
			if !ok {
				err := zerr.With(zerr.New("no source submitted for unit"), "unit_id", unit.ID)
				span.RecordError(err)
				return err
			}

			output, err := p.compiler.Compile(gctx, unit, content)
			if err != nil {
				span.RecordError(err)
				return err
			}

			p.engine.MarkCompiled(unit.ID, output)
			return nil
		})
	}

	return g.Wait()
}
