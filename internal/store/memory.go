package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nvandessel/metakg/internal/models"
)

// InMemoryGraphStore implements GraphStore for testing and development.
// Edges keep insertion order, matching the SQLite rowid ordering.
type InMemoryGraphStore struct {
	mu         sync.RWMutex
	nodes      map[string]models.Node
	edges      []models.Edge
	edgeIndex  map[string]int
	kinetics   map[string]models.KineticParam
	regulation map[string]models.RegulatoryInteraction
}

// NewInMemoryGraphStore creates a new in-memory store.
func NewInMemoryGraphStore() *InMemoryGraphStore {
	return &InMemoryGraphStore{
		nodes:      make(map[string]models.Node),
		edges:      make([]models.Edge, 0),
		edgeIndex:  make(map[string]int),
		kinetics:   make(map[string]models.KineticParam),
		regulation: make(map[string]models.RegulatoryInteraction),
	}
}

// WriteGraph upserts nodes and edges.
func (s *InMemoryGraphStore) WriteGraph(ctx context.Context, nodes []models.Node, edges []models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("node ID is required")
		}
		s.nodes[n.ID] = n
	}
	for _, e := range edges {
		key := e.Key()
		if i, ok := s.edgeIndex[key]; ok {
			s.edges[i] = e
			continue
		}
		s.edgeIndex[key] = len(s.edges)
		s.edges = append(s.edges, e)
	}
	return nil
}

// UpsertKineticParams inserts or replaces kinetic rows by ID.
func (s *InMemoryGraphStore) UpsertKineticParams(ctx context.Context, params []models.KineticParam) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range params {
		if p.ID == "" {
			p.ID = models.KineticParamID(p.EnzymeID, p.ReactionID, p.SubstrateID, p.SourceDatabase)
		}
		s.kinetics[p.ID] = p
	}
	return len(params), nil
}

// UpsertRegulatoryInteractions inserts or replaces regulatory rows by ID.
func (s *InMemoryGraphStore) UpsertRegulatoryInteractions(ctx context.Context, interactions []models.RegulatoryInteraction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ri := range interactions {
		if ri.ID == "" {
			ri.ID = models.RegulatoryInteractionID(ri.EnzymeID, ri.CompoundID, ri.InteractionType)
		}
		s.regulation[ri.ID] = ri
	}
	return len(interactions), nil
}

// GetNode retrieves a node by ID. Returns nil if not found.
func (s *InMemoryGraphStore) GetNode(ctx context.Context, id string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if node, exists := s.nodes[id]; exists {
		return &node, nil
	}
	return nil, nil
}

// ResolveID resolves an internal ID, "db:ext" shorthand, or case-insensitive name.
func (s *InMemoryGraphStore) ResolveID(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", nil
	}
	if _, ok := s.nodes[userID]; ok {
		return userID, nil
	}

	ids := s.sortedIDs()
	if db, ext, ok := strings.Cut(userID, ":"); ok {
		db = strings.ToLower(db)
		for _, id := range ids {
			for k, v := range s.nodes[id].Xrefs {
				if strings.ToLower(k) == db && v == ext {
					return id, nil
				}
			}
		}
	}
	for _, id := range ids {
		if strings.EqualFold(s.nodes[id].Name, userID) {
			return id, nil
		}
	}
	return "", nil
}

func (s *InMemoryGraphStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AllNodes returns nodes of the given kind (all when empty), sorted by ID.
func (s *InMemoryGraphStore) AllNodes(ctx context.Context, kind models.NodeKind) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nodes []models.Node
	for _, id := range s.sortedIDs() {
		n := s.nodes[id]
		if kind == "" || n.Kind == kind {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// EdgesOf returns all edges touching nodeID in insertion order.
func (s *InMemoryGraphStore) EdgesOf(ctx context.Context, nodeID string) ([]models.Edge, error) {
	return s.GetEdges(ctx, nodeID, DirectionBoth, "")
}

// GetEdges returns edges connected to a node, optionally filtered by relation.
func (s *InMemoryGraphStore) GetEdges(ctx context.Context, nodeID string, direction Direction, rel models.Relation) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Edge
	for _, edge := range s.edges {
		if rel != "" && edge.Relation != rel {
			continue
		}

		switch direction {
		case DirectionOutbound:
			if edge.Source == nodeID {
				result = append(result, edge)
			}
		case DirectionInbound:
			if edge.Target == nodeID {
				result = append(result, edge)
			}
		default:
			if edge.Source == nodeID || edge.Target == nodeID {
				result = append(result, edge)
			}
		}
	}
	return result, nil
}

// AllEdges returns every edge in insertion order.
func (s *InMemoryGraphStore) AllEdges(ctx context.Context) ([]models.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Edge, len(s.edges))
	copy(out, s.edges)
	return out, nil
}

// ReactionsForPathway returns reaction IDs contained in the pathway.
func (s *InMemoryGraphStore) ReactionsForPathway(ctx context.Context, pathwayID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, e := range s.edges {
		if e.Source != pathwayID || e.Relation != models.RelContains {
			continue
		}
		if n, ok := s.nodes[e.Target]; ok && n.Kind == models.KindReaction {
			ids = append(ids, e.Target)
		}
	}
	return ids, nil
}

// ReactionsForEnzyme returns reaction IDs catalyzed by the enzyme.
func (s *InMemoryGraphStore) ReactionsForEnzyme(ctx context.Context, enzymeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, e := range s.edges {
		if e.Source == enzymeID && e.Relation == models.RelCatalyzes {
			ids = append(ids, e.Target)
		}
	}
	return ids, nil
}

// ReactionMetadata returns name and reversibility for a reaction.
func (s *InMemoryGraphStore) ReactionMetadata(ctx context.Context, reactionID string) (*models.ReactionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[reactionID]
	if !ok || n.Kind != models.KindReaction {
		return nil, nil
	}
	return &models.ReactionMeta{ID: n.ID, Name: n.Name, Reversible: n.Stoichiometry.Reversible()}, nil
}

// KineticParamsForReaction returns kinetic rows for the reaction, ordered by ID.
func (s *InMemoryGraphStore) KineticParamsForReaction(ctx context.Context, reactionID string) ([]models.KineticParam, error) {
	all, _ := s.AllKineticParams(ctx)
	var out []models.KineticParam
	for _, p := range all {
		if p.ReactionID == reactionID {
			out = append(out, p)
		}
	}
	return out, nil
}

// AllKineticParams returns every kinetic row ordered by ID.
func (s *InMemoryGraphStore) AllKineticParams(ctx context.Context) ([]models.KineticParam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.KineticParam, 0, len(s.kinetics))
	for _, p := range s.kinetics {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AllRegulatoryInteractions returns every regulatory row ordered by ID.
func (s *InMemoryGraphStore) AllRegulatoryInteractions(ctx context.Context) ([]models.RegulatoryInteraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RegulatoryInteraction, 0, len(s.regulation))
	for _, ri := range s.regulation {
		out = append(out, ri)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Stats counts nodes, edges, and kinetic rows.
func (s *InMemoryGraphStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Nodes:                  len(s.nodes),
		Edges:                  len(s.edges),
		NodesByKind:            make(map[models.NodeKind]int),
		EdgesByRelation:        make(map[models.Relation]int),
		KineticParams:          len(s.kinetics),
		RegulatoryInteractions: len(s.regulation),
	}
	for _, n := range s.nodes {
		st.NodesByKind[n.Kind]++
	}
	for _, e := range s.edges {
		st.EdgesByRelation[e.Relation]++
	}
	return st, nil
}

// Clear removes all graph and kinetic data.
func (s *InMemoryGraphStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]models.Node)
	s.edges = make([]models.Edge, 0)
	s.edgeIndex = make(map[string]int)
	s.kinetics = make(map[string]models.KineticParam)
	s.regulation = make(map[string]models.RegulatoryInteraction)
	return nil
}

// Close is a no-op for in-memory store.
func (s *InMemoryGraphStore) Close() error {
	return nil
}
