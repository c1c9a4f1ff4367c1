package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grain/internal/adapters/config"
	"go.trai.ch/grain/internal/adapters/logger"
	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
)

const NodeID graft.ID = "adapter.unit_compiler"

func init() {
	graft.Register(graft.Node[ports.UnitCompiler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ProjectNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.UnitCompiler, error) {
			project, err := graft.Dep[*domain.Project](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewCompiler(project.Compiler, log), nil
		},
	})
}
