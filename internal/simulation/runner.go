package simulation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/store"
)

// Runner orchestrates multi-step simulation experiments against a real
// graph store and simulator.
type Runner struct {
	t     *testing.T
	store *store.SQLiteGraphStore
}

// NewRunner creates a simulation runner with an isolated SQLite store
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteGraphStore(tmpDir)
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Store returns the runner's backing store.
func (r *Runner) Store() *store.SQLiteGraphStore {
	return r.store
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()

	// Phase 1: Seed the graph with the pathway and its kinetics.
	r.Seed(ctx, scenario.Pathway)

	// Phase 2: Configure the simulator and the base config.
	simCfg := simulate.DefaultSimulatorConfig()
	if scenario.SimulatorConfig != nil {
		simCfg = *scenario.SimulatorConfig
	}
	sim := simulate.New(r.store, simCfg)

	mode := scenario.Mode
	if mode == "" {
		mode = simulate.ModeFBA
	}

	base := sim.NewConfig()
	base.PathwayID = scenario.Pathway.ID
	if scenario.Base != nil {
		scenario.Base(&base)
	}

	// Phase 3: Run steps.
	steps := make([]StepResult, len(scenario.Steps))
	for i, step := range scenario.Steps {
		if scenario.BeforeStep != nil {
			scenario.BeforeStep(i, r.store)
		}
		steps[i] = r.runStep(ctx, sim, i, step, base, mode)
	}

	return SimulationResult{
		Steps:     steps,
		Store:     r.store,
		Simulator: sim,
	}
}

// Seed writes the pathway's nodes, edges and kinetic rows into the store.
func (r *Runner) Seed(ctx context.Context, spec PathwaySpec) {
	r.t.Helper()

	nodes, edges := spec.Graph()
	if err := r.store.WriteGraph(ctx, nodes, edges); err != nil {
		r.t.Fatalf("Seed: WriteGraph(%s): %v", spec.ID, err)
	}
	if len(spec.Kinetics) > 0 {
		if _, err := r.store.UpsertKineticParams(ctx, spec.Kinetics); err != nil {
			r.t.Fatalf("Seed: UpsertKineticParams(%s): %v", spec.ID, err)
		}
	}
}

// runStep executes a single step and returns the result.
func (r *Runner) runStep(ctx context.Context, sim *simulate.Simulator, index int, step Step, base simulate.SimulationConfig, mode simulate.Mode) StepResult {
	r.t.Helper()

	cfg := base.Clone()
	if step.Configure != nil {
		step.Configure(&cfg)
	}
	result := StepResult{Index: index, Label: step.Label, Config: cfg.Clone()}

	if step.Perturb != nil {
		wi, err := sim.RunWhatIf(ctx, cfg, *step.Perturb, mode)
		if err != nil {
			r.t.Fatalf("step %d (%s): RunWhatIf: %v", index, step.Label, err)
		}
		result.WhatIf = wi
		result.Run = wi.Perturbed
		return result
	}

	run, err := sim.Run(ctx, cfg, mode)
	if err != nil {
		r.t.Fatalf("step %d (%s): Run: %v", index, step.Label, err)
	}
	result.Run = run
	return result
}

// Graph converts the PathwaySpec into nodes and edges. Compound and enzyme nodes
// are derived from the reactions that name them.
func (p PathwaySpec) Graph() ([]models.Node, []models.Edge) {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	nodes := []models.Node{{ID: p.ID, Kind: models.KindPathway, Name: name}}
	var edges []models.Edge
	seen := map[string]bool{p.ID: true}
	addNode := func(id string, kind models.NodeKind) {
		if seen[id] {
			return
		}
		seen[id] = true
		nodes = append(nodes, models.Node{ID: id, Kind: kind, Name: id})
	}

	for _, rx := range p.Reactions {
		direction := models.DirectionReversible
		if rx.Irreversible {
			direction = models.DirectionIrreversible
		}
		rxName := rx.Name
		if rxName == "" {
			rxName = rx.ID
		}
		seen[rx.ID] = true
		nodes = append(nodes, models.Node{
			ID:            rx.ID,
			Kind:          models.KindReaction,
			Name:          rxName,
			Stoichiometry: &models.Stoichiometry{Direction: direction},
		})
		edges = append(edges, models.Edge{Source: p.ID, Target: rx.ID, Relation: models.RelContains})

		for _, s := range rx.Substrates {
			addNode(s.ID, models.KindCompound)
			edges = append(edges, models.Edge{Source: s.ID, Target: rx.ID, Relation: models.RelSubstrateOf, Stoich: s.Stoich})
		}
		for _, pr := range rx.Products {
			addNode(pr.ID, models.KindCompound)
			edges = append(edges, models.Edge{Source: rx.ID, Target: pr.ID, Relation: models.RelProductOf, Stoich: pr.Stoich})
		}
		for _, enz := range rx.Enzymes {
			addNode(enz, models.KindEnzyme)
			edges = append(edges, models.Edge{Source: enz, Target: rx.ID, Relation: models.RelCatalyzes})
		}
		for _, inh := range rx.Inhibitors {
			addNode(inh, models.KindCompound)
			edges = append(edges, models.Edge{Source: inh, Target: rx.ID, Relation: models.RelInhibits})
		}
	}
	return nodes, edges
}

// FormatStepDebug returns a debug string for a step result.
func FormatStepDebug(sr StepResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Step %d (%s): status=%s\n", sr.Index, sr.Label, sr.Run.Status())
	writeSorted := func(kind string, m map[string]float64) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s %s: %.6g\n", kind, k, m[k])
		}
	}
	writeSorted("flux", sr.Fluxes())
	writeSorted("final", sr.Final())
	if sr.WhatIf != nil {
		writeSorted("delta-flux", sr.WhatIf.DeltaFluxes)
		writeSorted("delta-conc", sr.WhatIf.DeltaFinalConc)
	}
	return sb.String()
}
