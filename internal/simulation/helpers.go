package simulation

import (
	"fmt"

	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/simulate"
)

// Node IDs used by the built-in pathways.
const (
	Glucose  = "cpd:kegg:C00031"
	ATP      = "cpd:kegg:C00002"
	G6P      = "cpd:kegg:C00092"
	ADP      = "cpd:kegg:C00008"
	Pyruvate = "cpd:kegg:C00022"

	ReactionHK  = "rxn:kegg:R00299"
	ReactionG6P = "rxn:sim:G6P_PYR"

	EnzymeHK  = "enz:ec:2.7.1.1"
	EnzymeG6P = "enz:sim:G6P_PYR"

	PathwayGlycolysis = "pwy:sim:glycolysis"
)

// One returns a term with stoichiometric coefficient 1.
func One(id string) Term {
	return Term{ID: id, Stoich: 1}
}

// HexokinasePathway returns glucose + ATP -> G6P + ADP followed by
// G6P -> pyruvate, both irreversible. G6P feeds back on hexokinase, which is
// stored but not simulated.
func HexokinasePathway() PathwaySpec {
	return PathwaySpec{
		ID:   PathwayGlycolysis,
		Name: "Upper glycolysis fragment",
		Reactions: []ReactionSpec{
			{
				ID:           ReactionHK,
				Name:         "hexokinase",
				Substrates:   []Term{One(Glucose), One(ATP)},
				Products:     []Term{One(G6P), One(ADP)},
				Enzymes:      []string{EnzymeHK},
				Inhibitors:   []string{G6P},
				Irreversible: true,
			},
			{
				ID:           ReactionG6P,
				Name:         "G6P to pyruvate",
				Substrates:   []Term{One(G6P)},
				Products:     []Term{One(Pyruvate)},
				Enzymes:      []string{EnzymeG6P},
				Irreversible: true,
			},
		},
	}
}

// ChainIDs returns the compound and reaction IDs of a chain built by
// LinearChain.
func ChainIDs(prefix string, n int) (compounds, reactions []string) {
	for i := 0; i <= n; i++ {
		compounds = append(compounds, fmt.Sprintf("cpd:sim:%s%d", prefix, i))
	}
	for i := 1; i <= n; i++ {
		reactions = append(reactions, fmt.Sprintf("rxn:sim:%s%d", prefix, i))
	}
	return compounds, reactions
}

// LinearChain returns C0 -> C1 -> ... -> Cn with one enzyme per reaction
// ("enz:sim:<prefix><i>").
func LinearChain(prefix string, n int, reversible bool) PathwaySpec {
	cpds, rxns := ChainIDs(prefix, n)
	spec := PathwaySpec{
		ID:   "pwy:sim:" + prefix,
		Name: fmt.Sprintf("%s chain of %d", prefix, n),
	}
	for i, id := range rxns {
		spec.Reactions = append(spec.Reactions, ReactionSpec{
			ID:           id,
			Name:         fmt.Sprintf("%s step %d", prefix, i+1),
			Substrates:   []Term{One(cpds[i])},
			Products:     []Term{One(cpds[i+1])},
			Enzymes:      []string{fmt.Sprintf("enz:sim:%s%d", prefix, i+1)},
			Irreversible: !reversible,
		})
	}
	return spec
}

// Kinetic builds a literature-sourced kinetic row for a reaction.
func Kinetic(reactionID, enzymeID string, vmax, km float64) models.KineticParam {
	return models.KineticParam{
		ID:             models.KineticParamID(enzymeID, reactionID, "", "literature"),
		EnzymeID:       enzymeID,
		ReactionID:     reactionID,
		Vmax:           models.Float(vmax),
		Km:             models.Float(km),
		SourceDatabase: "literature",
	}
}

// ActivitySweep returns one step per factor, each scaling the enzyme's
// activity through a what-if perturbation.
func ActivitySweep(enzymeID string, factors ...float64) []Step {
	steps := make([]Step, len(factors))
	for i, f := range factors {
		steps[i] = Step{
			Label: fmt.Sprintf("%s x%g", enzymeID, f),
			Perturb: &simulate.WhatIfScenario{
				Name:          fmt.Sprintf("activity-%g", f),
				EnzymeFactors: map[string]float64{enzymeID: f},
			},
		}
	}
	return steps
}

// Configured returns a step that applies fn to the base config.
func Configured(label string, fn func(cfg *simulate.SimulationConfig)) Step {
	return Step{Label: label, Configure: fn}
}
