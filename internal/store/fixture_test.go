package store

import (
	"context"
	"testing"

	"github.com/nvandessel/metakg/internal/models"
)

// glycolysisFixture is a two-reaction pathway:
//
//	R01786: glucose + ATP -> G6P + ADP   (hexokinase, irreversible)
//	R02035: G6P -> pyruvate             (reversible)
func glycolysisFixture() ([]models.Node, []models.Edge) {
	cpd := func(ext, name string) models.Node {
		return models.Node{
			ID:    models.NodeID(models.KindCompound, "kegg", ext),
			Kind:  models.KindCompound,
			Name:  name,
			Xrefs: map[string]string{"kegg": ext},
		}
	}
	nodes := []models.Node{
		cpd("C00031", "Glucose"),
		cpd("C00092", "Glucose-6-phosphate"),
		cpd("C00022", "Pyruvate"),
		cpd("C00002", "ATP"),
		cpd("C00008", "ADP"),
		{
			ID:            "rxn:kegg:R01786",
			Kind:          models.KindReaction,
			Name:          "Hexokinase reaction",
			Xrefs:         map[string]string{"kegg": "R01786"},
			Stoichiometry: &models.Stoichiometry{Direction: models.DirectionIrreversible},
		},
		{
			ID:    "rxn:kegg:R02035",
			Kind:  models.KindReaction,
			Name:  "G6P to pyruvate",
			Xrefs: map[string]string{"kegg": "R02035"},
		},
		{ID: "enz:ec:2.7.1.1", Kind: models.KindEnzyme, Name: "Hexokinase", ECNumber: "2.7.1.1"},
		{ID: "enz:ec:5.3.1.9", Kind: models.KindEnzyme, Name: "Glucose-6-phosphate isomerase", ECNumber: "5.3.1.9"},
		{ID: "pwy:kegg:hsa00010", Kind: models.KindPathway, Name: "Glycolysis", Xrefs: map[string]string{"kegg": "hsa00010"}},
	}
	edges := []models.Edge{
		{Source: "pwy:kegg:hsa00010", Target: "rxn:kegg:R01786", Relation: models.RelContains},
		{Source: "pwy:kegg:hsa00010", Target: "rxn:kegg:R02035", Relation: models.RelContains},
		{Source: "cpd:kegg:C00031", Target: "rxn:kegg:R01786", Relation: models.RelSubstrateOf, Stoich: 1},
		{Source: "cpd:kegg:C00002", Target: "rxn:kegg:R01786", Relation: models.RelSubstrateOf, Stoich: 1},
		{Source: "rxn:kegg:R01786", Target: "cpd:kegg:C00092", Relation: models.RelProductOf, Stoich: 1},
		{Source: "rxn:kegg:R01786", Target: "cpd:kegg:C00008", Relation: models.RelProductOf, Stoich: 1, Compartment: "cytosol"},
		{Source: "cpd:kegg:C00092", Target: "rxn:kegg:R02035", Relation: models.RelSubstrateOf},
		{Source: "rxn:kegg:R02035", Target: "cpd:kegg:C00022", Relation: models.RelProductOf, Stoich: 2},
		{Source: "enz:ec:2.7.1.1", Target: "rxn:kegg:R01786", Relation: models.RelCatalyzes},
		{Source: "enz:ec:5.3.1.9", Target: "rxn:kegg:R02035", Relation: models.RelCatalyzes},
	}
	return nodes, edges
}

// storeFactories lets behavioral tests run against every implementation.
func storeFactories(t *testing.T) map[string]func() GraphStore {
	t.Helper()
	return map[string]func() GraphStore{
		"sqlite": func() GraphStore {
			s, err := NewSQLiteGraphStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewSQLiteGraphStore() error = %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
		"memory": func() GraphStore {
			return NewInMemoryGraphStore()
		},
	}
}

func seedFixture(t *testing.T, gs GraphStore) {
	t.Helper()
	nodes, edges := glycolysisFixture()
	if err := gs.WriteGraph(context.Background(), nodes, edges); err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
}
