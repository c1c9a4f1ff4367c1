package incremental

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grain/internal/adapters/cache"
	"go.trai.ch/grain/internal/adapters/config"
	"go.trai.ch/grain/internal/adapters/hash"
	"go.trai.ch/grain/internal/adapters/logger"
	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/grain/internal/engine/detect"
	"go.trai.ch/grain/internal/engine/units"
)

const NodeID graft.ID = "engine.incremental"

func init() {
	graft.Register(graft.Node[*Engine]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			units.NodeID,
			detect.NodeID,
			cache.NodeID,
			hash.NodeID,
			logger.NodeID,
			config.ProjectNodeID,
		},
		Run: func(ctx context.Context) (*Engine, error) {
			manager, err := graft.Dep[*units.Manager](ctx)
			if err != nil {
				return nil, err
			}
			detector, err := graft.Dep[*detect.Detector](ctx)
			if err != nil {
				return nil, err
			}
			artifacts, err := graft.Dep[ports.ArtifactCache](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.ContentHasher](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			project, err := graft.Dep[*domain.Project](ctx)
			if err != nil {
				return nil, err
			}
			return New(manager, detector, artifacts, hasher, log, project.CacheDir), nil
		},
	})
}
