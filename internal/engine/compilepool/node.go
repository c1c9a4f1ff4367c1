package compilepool

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grain/internal/adapters/cache"
	"go.trai.ch/grain/internal/adapters/config"
	"go.trai.ch/grain/internal/adapters/shell"
	"go.trai.ch/grain/internal/adapters/telemetry"
	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/grain/internal/engine/incremental"
)

const NodeID graft.ID = "engine.compile_pool"

func init() {
	graft.Register(graft.Node[*Pool]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			incremental.NodeID,
			shell.NodeID,
			telemetry.TracerNodeID,
			cache.NodeID,
			config.ProjectNodeID,
		},
		Run: func(ctx context.Context) (*Pool, error) {
			engine, err := graft.Dep[*incremental.Engine](ctx)
			if err != nil {
				return nil, err
			}
			compiler, err := graft.Dep[ports.UnitCompiler](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			artifacts, err := graft.Dep[ports.ArtifactCache](ctx)
			if err != nil {
				return nil, err
			}
			project, err := graft.Dep[*domain.Project](ctx)
			if err != nil {
				return nil, err
			}
			return New(engine, compiler, tracer, artifacts, project.Workers), nil
		},
	})
}
