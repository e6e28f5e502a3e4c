package simulate

import (
	"context"

	"github.com/nvandessel/metakg/internal/models"
)

// ReactionSource is the read-only graph query surface the simulator consumes.
// store.GraphStore satisfies it; implementations must be safe for concurrent reads.
type ReactionSource interface {
	ResolveID(ctx context.Context, userID string) (string, error)
	AllNodes(ctx context.Context, kind models.NodeKind) ([]models.Node, error)
	ReactionsForPathway(ctx context.Context, pathwayID string) ([]string, error)
	ReactionsForEnzyme(ctx context.Context, enzymeID string) ([]string, error)
	ReactionMetadata(ctx context.Context, reactionID string) (*models.ReactionMeta, error)
	EdgesOf(ctx context.Context, nodeID string) ([]models.Edge, error)
	KineticParamsForReaction(ctx context.Context, reactionID string) ([]models.KineticParam, error)
}

// NodeLookup resolves display names for reports.
type NodeLookup interface {
	GetNode(ctx context.Context, id string) (*models.Node, error)
}
