package simulate

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Defaults are the fallback values used when the graph carries no kinetic data
// and the caller supplies no override.
type Defaults struct {
	Vmax          float64 `json:"vmax" yaml:"vmax"`                   // mM/s
	Km            float64 `json:"km" yaml:"km"`                       // mM
	Keq           float64 `json:"keq" yaml:"keq"`                     // dimensionless
	Concentration float64 `json:"concentration" yaml:"concentration"` // mM
	// FluxCap bounds every FBA flux to [-FluxCap, FluxCap]. It is a numerical
	// cap in abstract flux units, not a physical limit.
	FluxCap float64 `json:"flux_cap" yaml:"flux_cap"`
}

// StandardDefaults returns Vmax 1.0 mM/s, Km 0.5 mM, Keq 1.0, an initial
// concentration of 1.0 mM, and a flux cap of 1000.
func StandardDefaults() Defaults {
	return Defaults{
		Vmax:          1.0,
		Km:            0.5,
		Keq:           1.0,
		Concentration: 1.0,
		FluxCap:       1000,
	}
}

// withFallbacks replaces invalid fields with the standard values. Rate
// parameters and the flux cap must be positive; a concentration of 0 is a
// valid starting state and is kept. The zero Defaults means "unset" and
// yields StandardDefaults.
func (d Defaults) withFallbacks() Defaults {
	std := StandardDefaults()
	if d == (Defaults{}) {
		return std
	}
	positive := func(v, fallback float64) float64 {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fallback
		}
		return v
	}
	d.Vmax = positive(d.Vmax, std.Vmax)
	d.Km = positive(d.Km, std.Km)
	d.Keq = positive(d.Keq, std.Keq)
	d.FluxCap = positive(d.FluxCap, std.FluxCap)
	if d.Concentration < 0 || math.IsNaN(d.Concentration) || math.IsInf(d.Concentration, 0) {
		d.Concentration = std.Concentration
	}
	return d
}

// Bounds is an FBA flux interval for one reaction.
type Bounds struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Mode selects the analysis a what-if comparison runs.
type Mode string

const (
	ModeFBA Mode = "fba"
	ModeODE Mode = "ode"
)

// ErrInvalidMode is returned for any mode other than "fba" or "ode".
var ErrInvalidMode = errors.New("invalid simulation mode")

// ParseMode validates a mode string. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFBA:
		return ModeFBA, nil
	case ModeODE:
		return ModeODE, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidMode, s, ModeFBA, ModeODE)
	}
}

// SimulationConfig selects the reaction scope and the parameters of one run.
//
// Scope precedence: ReactionIDs, then PathwayID, then every reaction in the
// store. Treat a config as a value: use Clone before changing its maps.
type SimulationConfig struct {
	PathwayID   string   `json:"pathway_id,omitempty" yaml:"pathway_id,omitempty"`
	ReactionIDs []string `json:"reaction_ids,omitempty" yaml:"reaction_ids,omitempty"`

	// ODE
	TEnd                  float64            `json:"t_end" yaml:"t_end"`
	TPoints               int                `json:"t_points" yaml:"t_points"`
	InitialConcentrations map[string]float64 `json:"initial_concentrations,omitempty" yaml:"initial_concentrations,omitempty"`
	// DefaultConcentration applies to compounds missing from
	// InitialConcentrations. Nil uses the simulator's Defaults.Concentration.
	DefaultConcentration *float64 `json:"default_concentration,omitempty" yaml:"default_concentration,omitempty"`
	// Method names the integrator for this run. Empty uses the simulator's.
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	// FBA
	ObjectiveReaction string            `json:"objective_reaction,omitempty" yaml:"objective_reaction,omitempty"`
	Maximize          bool              `json:"maximize" yaml:"maximize"`
	FluxBounds        map[string]Bounds `json:"flux_bounds,omitempty" yaml:"flux_bounds,omitempty"`
	// ClosedSystem balances every compound. By default compounds that are
	// only consumed or only produced within the scope are exchange boundaries
	// and carry no steady-state constraint.
	ClosedSystem bool `json:"closed_system,omitempty" yaml:"closed_system,omitempty"`

	// Kinetics
	VmaxOverrides map[string]float64 `json:"vmax_overrides,omitempty" yaml:"vmax_overrides,omitempty"`
	VmaxFactors   map[string]float64 `json:"vmax_factors,omitempty" yaml:"vmax_factors,omitempty"`
}

// NewConfig returns a config covering every stored reaction, maximizing the
// FBA objective and integrating to t=100 over 500 samples. Unlisted compounds
// start at the simulator's default concentration.
func NewConfig() SimulationConfig {
	return SimulationConfig{
		TEnd:     100,
		TPoints:  500,
		Maximize: true,
	}
}

// Clone returns a deep copy whose slices and maps share nothing with c.
func (c SimulationConfig) Clone() SimulationConfig {
	out := c
	out.ReactionIDs = slices.Clone(c.ReactionIDs)
	out.InitialConcentrations = maps.Clone(c.InitialConcentrations)
	out.FluxBounds = maps.Clone(c.FluxBounds)
	out.VmaxOverrides = maps.Clone(c.VmaxOverrides)
	out.VmaxFactors = maps.Clone(c.VmaxFactors)
	if c.DefaultConcentration != nil {
		v := *c.DefaultConcentration
		out.DefaultConcentration = &v
	}
	return out
}

// WhatIfScenario is a named perturbation applied on top of a baseline config.
type WhatIfScenario struct {
	Name string `json:"name" yaml:"name"`
	// EnzymeKnockouts silences every reaction the enzyme catalyzes.
	EnzymeKnockouts []string `json:"enzyme_knockouts,omitempty" yaml:"enzyme_knockouts,omitempty"`
	// EnzymeFactors scales activity: 0.5 halves it, 2.0 doubles it.
	EnzymeFactors map[string]float64 `json:"enzyme_factors,omitempty" yaml:"enzyme_factors,omitempty"`
	// InitialConcOverrides replaces baseline initial concentrations (mM).
	InitialConcOverrides map[string]float64 `json:"initial_conc_overrides,omitempty" yaml:"initial_conc_overrides,omitempty"`
}

// ErrInvalidScenario is returned for scenarios that cannot be applied.
var ErrInvalidScenario = errors.New("invalid what-if scenario")

// Validate checks the scenario's name, factors, and concentrations.
func (s WhatIfScenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	for _, id := range s.EnzymeKnockouts {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: %s: empty enzyme id in knockouts", ErrInvalidScenario, s.Name)
		}
	}
	for id, f := range s.EnzymeFactors {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s: factor for %s must be finite and non-negative, got %g", ErrInvalidScenario, s.Name, id, f)
		}
	}
	for id, v := range s.InitialConcOverrides {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s: concentration for %s must be finite and non-negative, got %g", ErrInvalidScenario, s.Name, id, v)
		}
	}
	return nil
}

// IsEmpty reports whether the scenario perturbs nothing.
func (s WhatIfScenario) IsEmpty() bool {
	return len(s.EnzymeKnockouts) == 0 && len(s.EnzymeFactors) == 0 && len(s.InitialConcOverrides) == 0
}
