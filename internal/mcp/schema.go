// Package mcp provides an MCP (Model Context Protocol) server for metakg.
package mcp

import (
	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/store"
)

// GetReactionInput defines the input for metakg_get_reaction.
type GetReactionInput struct {
	ID string `json:"id" jsonschema:"Reaction id, db:ext shorthand (kegg:R00299) or reaction name"`
}

// GetReactionOutput defines the output for metakg_get_reaction.
type GetReactionOutput struct {
	Found    bool                `json:"found" jsonschema:"Whether the reaction exists"`
	Reaction *store.ReactionView `json:"reaction,omitempty" jsonschema:"Reaction with substrates, products, enzymes and kinetic rows"`
	Message  string              `json:"message" jsonschema:"Human-readable result message"`
}

// GetCompoundInput defines the input for metakg_get_compound.
type GetCompoundInput struct {
	ID string `json:"id" jsonschema:"Compound id, db:ext shorthand (kegg:C00031) or compound name"`
}

// CompoundReaction is one reaction a compound participates in.
type CompoundReaction struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Role   string  `json:"role" jsonschema:"substrate, product, inhibitor or activator"`
	Stoich float64 `json:"stoich,omitempty"`
}

// GetCompoundOutput defines the output for metakg_get_compound.
type GetCompoundOutput struct {
	Found     bool               `json:"found" jsonschema:"Whether the compound exists"`
	Compound  *models.Node       `json:"compound,omitempty" jsonschema:"The compound node"`
	Reactions []CompoundReaction `json:"reactions,omitempty" jsonschema:"Reactions that consume, produce or are regulated by the compound"`
	Message   string             `json:"message" jsonschema:"Human-readable result message"`
}

// ScopeInput selects the reactions a simulation covers. ReactionIDs takes
// precedence over PathwayID; both empty means every stored reaction.
type ScopeInput struct {
	PathwayID   string   `json:"pathway_id,omitempty" jsonschema:"Pathway id, shorthand or name"`
	ReactionIDs []string `json:"reaction_ids,omitempty" jsonschema:"Explicit reaction ids; overrides pathway_id"`
}

// SimulateFBAInput defines the input for metakg_simulate_fba.
type SimulateFBAInput struct {
	ScopeInput
	ObjectiveReaction string                     `json:"objective_reaction,omitempty" jsonschema:"Reaction to optimize; empty uses the sum of irreversible fluxes"`
	Minimize          bool                       `json:"minimize,omitempty" jsonschema:"Minimize instead of maximize the objective"`
	FluxBounds        map[string]simulate.Bounds `json:"flux_bounds,omitempty" jsonschema:"Per-reaction flux bounds in mM/s"`
	ClosedSystem      bool                       `json:"closed_system,omitempty" jsonschema:"Balance every compound, including boundary compounds"`
	TopN              int                        `json:"top_n,omitempty" jsonschema:"Rows per table in the report (default 20)"`
}

// SimulateFBAOutput defines the output for metakg_simulate_fba.
type SimulateFBAOutput struct {
	Result *simulate.FBAResult `json:"result" jsonschema:"Flux balance result"`
	Report string              `json:"report" jsonschema:"Markdown summary of the largest fluxes and shadow prices"`
}

// SimulateODEInput defines the input for metakg_simulate_ode.
type SimulateODEInput struct {
	ScopeInput
	TEnd                  float64            `json:"t_end,omitempty" jsonschema:"End time in seconds (default 100)"`
	TPoints               int                `json:"t_points,omitempty" jsonschema:"Number of output samples (default 500)"`
	InitialConcentrations map[string]float64 `json:"initial_concentrations,omitempty" jsonschema:"Initial concentrations in mM keyed by compound id"`
	DefaultConcentration  *float64           `json:"default_concentration,omitempty" jsonschema:"Initial concentration for unlisted compounds in mM (default from config)"`
	Method                string             `json:"method,omitempty" jsonschema:"Integrator: rosenbrock23 or rk45"`
	IncludeTrajectories   bool               `json:"include_trajectories,omitempty" jsonschema:"Return full time series instead of final concentrations only"`
	TopN                  int                `json:"top_n,omitempty" jsonschema:"Rows per table in the report (default 20)"`
}

// SimulateODEOutput defines the output for metakg_simulate_ode.
type SimulateODEOutput struct {
	RunID               string               `json:"run_id"`
	Status              string               `json:"status" jsonschema:"ok, failed or error"`
	Message             string               `json:"message"`
	Steps               int                  `json:"steps,omitempty" jsonschema:"Accepted integrator steps"`
	FinalConcentrations map[string]float64   `json:"final_concentrations,omitempty" jsonschema:"Concentrations at t_end in mM"`
	T                   []float64            `json:"t,omitempty" jsonschema:"Sample times, only with include_trajectories"`
	Concentrations      map[string][]float64 `json:"concentrations,omitempty" jsonschema:"Time series per compound, only with include_trajectories"`
	Report              string               `json:"report" jsonschema:"Markdown summary of final concentrations"`
}

// SimulateWhatIfInput defines the input for metakg_simulate_whatif.
type SimulateWhatIfInput struct {
	ScopeInput
	Mode      string                    `json:"mode,omitempty" jsonschema:"fba (default) or ode"`
	TEnd      float64                   `json:"t_end,omitempty" jsonschema:"ODE end time in seconds (default 100)"`
	TPoints   int                       `json:"t_points,omitempty" jsonschema:"ODE output samples (default 500)"`
	Scenarios []simulate.WhatIfScenario `json:"scenarios" jsonschema:"Perturbations to compare against one shared baseline"`
	TopN      int                       `json:"top_n,omitempty" jsonschema:"Rows per table in the report (default 20)"`
}

// WhatIfSummary is the comparison for one scenario.
type WhatIfSummary struct {
	ScenarioName       string             `json:"scenario_name"`
	BaselineStatus     string             `json:"baseline_status"`
	PerturbedStatus    string             `json:"perturbed_status"`
	BaselineObjective  *float64           `json:"baseline_objective,omitempty"`
	PerturbedObjective *float64           `json:"perturbed_objective,omitempty"`
	DeltaFluxes        map[string]float64 `json:"delta_fluxes,omitempty" jsonschema:"Perturbed minus baseline flux per reaction (fba mode)"`
	DeltaFinalConc     map[string]float64 `json:"delta_final_conc,omitempty" jsonschema:"Perturbed minus baseline final concentration per compound (ode mode)"`
}

// SimulateWhatIfOutput defines the output for metakg_simulate_whatif.
type SimulateWhatIfOutput struct {
	Mode    string          `json:"mode"`
	Results []WhatIfSummary `json:"results"`
	Report  string          `json:"report" jsonschema:"Markdown comparison of every scenario"`
}

// StatsInput defines the input for metakg_stats.
type StatsInput struct {
	Validate bool `json:"validate,omitempty" jsonschema:"Also check the graph for dangling edges and cycles"`
}

// StatsOutput defines the output for metakg_stats.
type StatsOutput struct {
	Stats  store.Stats             `json:"stats"`
	Issues []store.ValidationError `json:"issues,omitempty" jsonschema:"Validation problems, only with validate"`
}
