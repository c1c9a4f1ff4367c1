package hash

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grain/internal/core/ports"
)

// NodeID is the unique identifier for the content hasher Graft node.
const NodeID graft.ID = "adapter.content_hasher"

func init() {
	graft.Register(graft.Node[ports.ContentHasher]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ContentHasher, error) {
			return NewHasher(), nil
		},
	})
}
