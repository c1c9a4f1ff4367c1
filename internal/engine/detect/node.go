package detect

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grain/internal/adapters/hash" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/grain/internal/core/ports"
)

// NodeID is the unique identifier for the change detector Graft node.
const NodeID graft.ID = "engine.change_detector"

func init() {
	graft.Register(graft.Node[*Detector]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{hash.NodeID},
		Run: func(ctx context.Context) (*Detector, error) {
			hasher, err := graft.Dep[ports.ContentHasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewDetector(hasher), nil
		},
	})
}
