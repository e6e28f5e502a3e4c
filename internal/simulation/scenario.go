package simulation

import (
	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/store"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name    string
	Pathway PathwaySpec
	Mode    simulate.Mode
	Steps   []Step

	// SimulatorConfig, when non-nil, replaces the default simulator setup.
	SimulatorConfig *simulate.SimulatorConfig

	// Base, when non-nil, adjusts the config every step starts from. The
	// runner scopes the base config to the pathway before calling it.
	Base func(cfg *simulate.SimulationConfig)

	// BeforeStep, when non-nil, is called before each step executes. Use
	// this to change the store between steps (e.g., upserting measured
	// kinetics to compare against the defaults).
	BeforeStep func(stepIndex int, s *store.SQLiteGraphStore)
}

// Step is one run within a scenario.
type Step struct {
	// Label is an optional human-readable tag for debugging output.
	Label string

	// Configure, when non-nil, changes a clone of the base config.
	Configure func(cfg *simulate.SimulationConfig)

	// Perturb, when non-nil, runs the step as a what-if comparison against
	// the configured run; the step's Run is then the perturbed result.
	Perturb *simulate.WhatIfScenario
}

// PathwaySpec is a flat builder for a pathway and its reactions.
type PathwaySpec struct {
	ID        string
	Name      string
	Reactions []ReactionSpec
	Kinetics  []models.KineticParam
}

// ReactionSpec describes one reaction with its participants and enzymes.
type ReactionSpec struct {
	ID           string
	Name         string
	Substrates   []Term
	Products     []Term
	Enzymes      []string
	Inhibitors   []string
	Irreversible bool
}

// Term is a compound with its stoichiometric coefficient.
type Term struct {
	ID     string
	Stoich float64
}

// StepResult captures the outcome of a single step.
type StepResult struct {
	Index  int
	Label  string
	Run    simulate.RunResult
	WhatIf *simulate.WhatIfResult
	// Config is the exact config the step ran (before any perturbation).
	Config simulate.SimulationConfig
}

// Fluxes returns the step's FBA fluxes, or nil for ODE runs.
func (r StepResult) Fluxes() map[string]float64 {
	if r.Run.FBA == nil {
		return nil
	}
	return r.Run.FBA.Fluxes
}

// Final returns the step's final concentrations, or nil for FBA runs.
func (r StepResult) Final() map[string]float64 {
	if r.Run.ODE == nil {
		return nil
	}
	return r.Run.ODE.FinalConcentrations()
}

// SimulationResult captures all steps and the final store state.
type SimulationResult struct {
	Steps     []StepResult
	Store     *store.SQLiteGraphStore
	Simulator *simulate.Simulator
}
