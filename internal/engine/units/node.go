package units

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the unit manager Graft node.
const NodeID graft.ID = "engine.unit_manager"

func init() {
	graft.Register(graft.Node[*Manager]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Manager, error) {
			return NewManager(), nil
		},
	})
}
