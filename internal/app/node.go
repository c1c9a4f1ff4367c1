package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grain/internal/adapters/cache"
	"go.trai.ch/grain/internal/adapters/config"
	"go.trai.ch/grain/internal/adapters/hash"
	"go.trai.ch/grain/internal/adapters/logger"
	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/grain/internal/engine/compilepool"
	"go.trai.ch/grain/internal/engine/incremental"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ProjectNodeID,
			incremental.NodeID,
			compilepool.NodeID,
			cache.NodeID,
			hash.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			project, err := graft.Dep[*domain.Project](ctx)
			if err != nil {
				return nil, err
			}
			engine, err := graft.Dep[*incremental.Engine](ctx)
			if err != nil {
				return nil, err
			}
			pool, err := graft.Dep[*compilepool.Pool](ctx)
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
			return New(project, engine, pool, artifacts, hasher, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{
				App:    application,
				Logger: log,
			}, nil
		},
	})
}
