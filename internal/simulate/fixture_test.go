package simulate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/store"
)

const (
	glucose  = "cpd:kegg:C00031"
	atp      = "cpd:kegg:C00002"
	g6p      = "cpd:kegg:C00092"
	adp      = "cpd:kegg:C00008"
	pyruvate = "cpd:kegg:C00022"

	rxnHK  = "rxn:kegg:R00299"
	rxnG6P = "rxn:test:R2"

	enzHK  = "enz:ec:2.7.1.1"
	enzG6P = "enz:test:E2"

	pathwayGlyco = "pwy:test:glyco"
)

// side is one participant of a fixture reaction.
type side struct {
	id     string
	stoich float64
}

// reaction describes a fixture reaction and its catalyst.
type reaction struct {
	id           string
	substrates   []side
	products     []side
	irreversible bool
	enzyme       string
}

// buildGraph turns reactions into nodes and edges under one pathway.
func buildGraph(pathwayID string, rxns []reaction) ([]models.Node, []models.Edge) {
	seen := map[string]bool{}
	var nodes []models.Node
	var edges []models.Edge
	addNode := func(n models.Node) {
		if !seen[n.ID] {
			seen[n.ID] = true
			nodes = append(nodes, n)
		}
	}

	addNode(models.Node{ID: pathwayID, Kind: models.KindPathway, Name: "Test pathway"})
	for _, r := range rxns {
		dir := models.DirectionReversible
		if r.irreversible {
			dir = models.DirectionIrreversible
		}
		addNode(models.Node{
			ID:            r.id,
			Kind:          models.KindReaction,
			Name:          "Reaction " + r.id,
			Stoichiometry: &models.Stoichiometry{Direction: dir},
		})
		edges = append(edges, models.Edge{Source: pathwayID, Target: r.id, Relation: models.RelContains})
		for _, s := range r.substrates {
			addNode(models.Node{ID: s.id, Kind: models.KindCompound, Name: "Compound " + s.id})
			edges = append(edges, models.Edge{Source: s.id, Target: r.id, Relation: models.RelSubstrateOf, Stoich: s.stoich})
		}
		for _, p := range r.products {
			addNode(models.Node{ID: p.id, Kind: models.KindCompound, Name: "Compound " + p.id})
			edges = append(edges, models.Edge{Source: r.id, Target: p.id, Relation: models.RelProductOf, Stoich: p.stoich})
		}
		if r.enzyme != "" {
			addNode(models.Node{ID: r.enzyme, Kind: models.KindEnzyme, Name: "Enzyme " + r.enzyme})
			edges = append(edges, models.Edge{Source: r.enzyme, Target: r.id, Relation: models.RelCatalyzes})
		}
	}
	return nodes, edges
}

// glycolysisReactions is the two-step pathway
//
//	R00299: glucose + ATP -> G6P + ADP  (irreversible, hexokinase)
//	R2:     G6P -> pyruvate             (irreversible)
func glycolysisReactions() []reaction {
	return []reaction{
		{
			id:           rxnHK,
			substrates:   []side{{glucose, 1}, {atp, 1}},
			products:     []side{{g6p, 1}, {adp, 1}},
			irreversible: true,
			enzyme:       enzHK,
		},
		{
			id:           rxnG6P,
			substrates:   []side{{g6p, 1}},
			products:     []side{{pyruvate, 1}},
			irreversible: true,
			enzyme:       enzG6P,
		},
	}
}

// chainReactions links n irreversible steps cpd:chain:0 -> ... -> cpd:chain:n.
func chainReactions(n int) []reaction {
	rxns := make([]reaction, n)
	for i := range rxns {
		rxns[i] = reaction{
			id:           fmt.Sprintf("rxn:chain:%d", i),
			substrates:   []side{{fmt.Sprintf("cpd:chain:%d", i), 1}},
			products:     []side{{fmt.Sprintf("cpd:chain:%d", i+1), 1}},
			irreversible: true,
		}
	}
	return rxns
}

// newStore seeds an in-memory store with the given reactions.
func newStore(t *testing.T, rxns []reaction) *store.InMemoryGraphStore {
	t.Helper()
	gs := store.NewInMemoryGraphStore()
	nodes, edges := buildGraph(pathwayGlyco, rxns)
	if err := gs.WriteGraph(context.Background(), nodes, edges); err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
	return gs
}

// newTestSimulator returns a simulator with deterministic run IDs.
func newTestSimulator(src ReactionSource) *Simulator {
	cfg := DefaultSimulatorConfig()
	cfg.NewID = func() string { return "run-test" }
	return New(src, cfg)
}

// failingSource wraps a source and fails enzyme lookups.
type failingSource struct {
	ReactionSource
	failEnzymes bool
	failEdges   bool
}

var errInjected = errors.New("injected store failure")

func (f failingSource) ReactionsForEnzyme(ctx context.Context, id string) ([]string, error) {
	if f.failEnzymes {
		return nil, errInjected
	}
	return f.ReactionSource.ReactionsForEnzyme(ctx, id)
}

func (f failingSource) EdgesOf(ctx context.Context, id string) ([]models.Edge, error) {
	if f.failEdges {
		return nil, errInjected
	}
	return f.ReactionSource.EdgesOf(ctx, id)
}
