package cache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grain/internal/adapters/config"
	"go.trai.ch/grain/internal/adapters/logger"
	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
)

// NodeID is the unique identifier for the artifact cache Graft node.
const NodeID graft.ID = "adapter.artifact_cache"

func init() {
	graft.Register(graft.Node[ports.ArtifactCache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ProjectNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.ArtifactCache, error) {
			project, err := graft.Dep[*domain.Project](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(project.CacheDir, log), nil
		},
	})
}
