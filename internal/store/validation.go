package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/nvandessel/metakg/internal/models"
)

// ValidationError describes a graph validation issue.
type ValidationError struct {
	NodeID string `json:"node_id"`
	Field  string `json:"field"`  // "edge-source", "edge-target", "relation", "stoich", "contains"
	RefID  string `json:"ref_id"` // The problematic reference
	Issue  string `json:"issue"`  // "dangling", "cycle", "self-reference", "kind-mismatch", "invalid"
}

// String returns a human-readable description of the validation error.
func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s in %s references %s", e.Issue, e.NodeID, e.Field, e.RefID)
}

// endpointKinds lists the expected (source, target) node kinds per relation.
// An empty kind accepts anything.
var endpointKinds = map[models.Relation][2]models.NodeKind{
	models.RelSubstrateOf: {models.KindCompound, models.KindReaction},
	models.RelProductOf:   {models.KindReaction, models.KindCompound},
	models.RelCatalyzes:   {models.KindEnzyme, models.KindReaction},
	models.RelInhibits:    {models.KindCompound, models.KindReaction},
	models.RelActivates:   {models.KindCompound, models.KindReaction},
	models.RelContains:    {models.KindPathway, ""},
	models.RelXref:        {"", ""},
}

// ValidateGraph checks the graph for consistency.
// Returns validation errors for:
// - Dangling edge endpoints (references to non-existent node IDs)
// - Unknown relations and endpoints of the wrong kind
// - Negative stoichiometric coefficients
// - Self-references and CONTAINS cycles between pathways
func ValidateGraph(ctx context.Context, gs GraphStore) ([]ValidationError, error) {
	nodes, err := gs.AllNodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get nodes: %w", err)
	}
	edges, err := gs.AllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get edges: %w", err)
	}

	kinds := make(map[string]models.NodeKind, len(nodes))
	for _, n := range nodes {
		kinds[n.ID] = n.Kind
	}

	var errors []ValidationError
	containsGraph := make(map[string][]string)

	for _, e := range edges {
		if !e.Relation.Valid() {
			errors = append(errors, ValidationError{NodeID: e.Source, Field: "relation", RefID: string(e.Relation), Issue: "invalid"})
			continue
		}
		if e.Source == e.Target {
			errors = append(errors, ValidationError{NodeID: e.Source, Field: string(e.Relation), RefID: e.Target, Issue: "self-reference"})
		}

		srcKind, srcOK := kinds[e.Source]
		dstKind, dstOK := kinds[e.Target]
		if !srcOK {
			errors = append(errors, ValidationError{NodeID: e.Source, Field: "edge-source", RefID: e.Source, Issue: "dangling"})
		}
		if !dstOK {
			errors = append(errors, ValidationError{NodeID: e.Source, Field: "edge-target", RefID: e.Target, Issue: "dangling"})
		}

		want := endpointKinds[e.Relation]
		if srcOK && want[0] != "" && srcKind != want[0] {
			errors = append(errors, ValidationError{NodeID: e.Source, Field: string(e.Relation), RefID: e.Target, Issue: "kind-mismatch"})
		} else if dstOK && want[1] != "" && dstKind != want[1] {
			errors = append(errors, ValidationError{NodeID: e.Source, Field: string(e.Relation), RefID: e.Target, Issue: "kind-mismatch"})
		}

		if e.Stoich < 0 {
			errors = append(errors, ValidationError{NodeID: e.Source, Field: "stoich", RefID: e.Target, Issue: "invalid"})
		}

		if e.Relation == models.RelContains && dstKind == models.KindPathway {
			containsGraph[e.Source] = append(containsGraph[e.Source], e.Target)
		}
	}

	for _, cycle := range detectCycles(containsGraph) {
		errors = append(errors, ValidationError{NodeID: cycle[0], Field: "contains", RefID: cycle[len(cycle)-1], Issue: "cycle"})
	}

	return errors, nil
}

// detectCycles detects cycles in a directed graph using DFS with color marking.
// Returns a list of cycles found, where each cycle is a list of node IDs.
func detectCycles(graph map[string][]string) [][]string {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done)
	color := make(map[string]int)
	parent := make(map[string]string)
	var cycles [][]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = 1

		for _, neighbor := range graph[node] {
			if color[neighbor] == 1 {
				// Back edge: walk parents to reconstruct the loop
				cycle := []string{neighbor, node}
				for current := node; current != neighbor; {
					p, ok := parent[current]
					if !ok || p == neighbor {
						break
					}
					cycle = append(cycle, p)
					current = p
				}
				cycles = append(cycles, cycle)
				continue
			}
			if color[neighbor] == 0 {
				parent[neighbor] = node
				dfs(neighbor)
			}
		}

		color[node] = 2
	}

	starts := make([]string, 0, len(graph))
	for node := range graph {
		starts = append(starts, node)
	}
	sort.Strings(starts)
	for _, node := range starts {
		if color[node] == 0 {
			dfs(node)
		}
	}

	return cycles
}
