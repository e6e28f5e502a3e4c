// Package store defines the GraphStore interface for persisting and querying
// the metabolic knowledge graph, with SQLite and in-memory implementations.
package store

import (
	"context"

	"github.com/nvandessel/metakg/internal/models"
)

// Direction specifies edge traversal direction.
type Direction string

const (
	DirectionOutbound Direction = "outbound" // Follow edges from source to target
	DirectionInbound  Direction = "inbound"  // Follow edges from target to source
	DirectionBoth     Direction = "both"     // Follow edges in both directions
)

// Stats summarizes the contents of a store.
type Stats struct {
	Nodes                  int                     `json:"nodes"`
	Edges                  int                     `json:"edges"`
	NodesByKind            map[models.NodeKind]int `json:"nodes_by_kind"`
	EdgesByRelation        map[models.Relation]int `json:"edges_by_relation"`
	KineticParams          int                     `json:"kinetic_params"`
	RegulatoryInteractions int                     `json:"regulatory_interactions"`
}

// GraphStore defines the interface for storing and querying the metabolic graph.
// Implementations must be safe for concurrent reads.
type GraphStore interface {
	// Writes. Nodes and edges are upserted by ID and (source, relation, target).
	WriteGraph(ctx context.Context, nodes []models.Node, edges []models.Edge) error
	UpsertKineticParams(ctx context.Context, params []models.KineticParam) (int, error)
	UpsertRegulatoryInteractions(ctx context.Context, interactions []models.RegulatoryInteraction) (int, error)

	// GetNode returns nil, nil when the node does not exist.
	GetNode(ctx context.Context, id string) (*models.Node, error)

	// ResolveID maps an internal ID, "db:ext" shorthand, or case-insensitive
	// name to an internal node ID. Returns "" when nothing matches.
	ResolveID(ctx context.Context, userID string) (string, error)

	// AllNodes returns nodes of the given kind (all kinds when empty), sorted by ID.
	AllNodes(ctx context.Context, kind models.NodeKind) ([]models.Node, error)

	// EdgesOf returns every edge where nodeID is source or target.
	EdgesOf(ctx context.Context, nodeID string) ([]models.Edge, error)
	GetEdges(ctx context.Context, nodeID string, direction Direction, rel models.Relation) ([]models.Edge, error)

	// Reaction-scope queries consumed by the simulator.
	ReactionsForPathway(ctx context.Context, pathwayID string) ([]string, error)
	ReactionsForEnzyme(ctx context.Context, enzymeID string) ([]string, error)
	ReactionMetadata(ctx context.Context, reactionID string) (*models.ReactionMeta, error)
	KineticParamsForReaction(ctx context.Context, reactionID string) ([]models.KineticParam, error)

	AllKineticParams(ctx context.Context) ([]models.KineticParam, error)
	AllRegulatoryInteractions(ctx context.Context) ([]models.RegulatoryInteraction, error)
	AllEdges(ctx context.Context) ([]models.Edge, error)

	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Clearer is implemented by stores that can drop all graph and kinetic data.
type Clearer interface {
	Clear(ctx context.Context) error
}

var (
	_ Clearer    = (*SQLiteGraphStore)(nil)
	_ Clearer    = (*InMemoryGraphStore)(nil)
	_ GraphStore = (*SQLiteGraphStore)(nil)
	_ GraphStore = (*InMemoryGraphStore)(nil)
)
