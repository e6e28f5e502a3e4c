package store

import (
	"context"
	"testing"

	"github.com/nvandessel/metakg/internal/models"
)

func TestValidateGraph_Clean(t *testing.T) {
	gs := NewInMemoryGraphStore()
	seedFixture(t, gs)

	errs, err := ValidateGraph(context.Background(), gs)
	if err != nil {
		t.Fatalf("ValidateGraph() error = %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("ValidateGraph() = %v, want none", errs)
	}
}

func TestValidateGraph_Issues(t *testing.T) {
	tests := []struct {
		name  string
		edges []models.Edge
		issue string
		field string
	}{
		{
			name:  "dangling target",
			edges: []models.Edge{{Source: "cpd:a", Target: "rxn:missing", Relation: models.RelSubstrateOf}},
			issue: "dangling",
			field: "edge-target",
		},
		{
			name:  "wrong endpoint kind",
			edges: []models.Edge{{Source: "rxn:r", Target: "rxn:r2", Relation: models.RelSubstrateOf}},
			issue: "kind-mismatch",
			field: string(models.RelSubstrateOf),
		},
		{
			name:  "negative stoich",
			edges: []models.Edge{{Source: "cpd:a", Target: "rxn:r", Relation: models.RelSubstrateOf, Stoich: -1}},
			issue: "invalid",
			field: "stoich",
		},
		{
			name:  "unknown relation",
			edges: []models.Edge{{Source: "cpd:a", Target: "rxn:r", Relation: "EATS"}},
			issue: "invalid",
			field: "relation",
		},
		{
			name: "pathway cycle",
			edges: []models.Edge{
				{Source: "pwy:a", Target: "pwy:b", Relation: models.RelContains},
				{Source: "pwy:b", Target: "pwy:a", Relation: models.RelContains},
			},
			issue: "cycle",
			field: "contains",
		},
	}

	nodes := []models.Node{
		{ID: "cpd:a", Kind: models.KindCompound, Name: "A"},
		{ID: "rxn:r", Kind: models.KindReaction, Name: "R"},
		{ID: "rxn:r2", Kind: models.KindReaction, Name: "R2"},
		{ID: "pwy:a", Kind: models.KindPathway, Name: "PA"},
		{ID: "pwy:b", Kind: models.KindPathway, Name: "PB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := NewInMemoryGraphStore()
			if err := gs.WriteGraph(context.Background(), nodes, tt.edges); err != nil {
				t.Fatalf("WriteGraph() error = %v", err)
			}
			errs, err := ValidateGraph(context.Background(), gs)
			if err != nil {
				t.Fatalf("ValidateGraph() error = %v", err)
			}
			found := false
			for _, e := range errs {
				if e.Issue == tt.issue && e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s/%s, got %v", tt.issue, tt.field, errs)
			}
		})
	}
}

func TestDetectCycles(t *testing.T) {
	graph := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"e"},
	}
	cycles := detectCycles(graph)
	if len(cycles) != 1 {
		t.Fatalf("detectCycles() found %d cycles, want 1: %v", len(cycles), cycles)
	}
}
