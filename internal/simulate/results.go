package simulate

import (
	"encoding/json"
	"maps"
	"slices"
	"sort"
)

// Status values carried by result records.
const (
	StatusOptimal    = "optimal"
	StatusInfeasible = "infeasible"
	StatusUnbounded  = "unbounded"
	StatusOK         = "ok"
	StatusFailed     = "failed"
	StatusError      = "error"
)

// MsgNoReactions is reported when the scope resolves to zero reactions.
const MsgNoReactions = "No reactions found for the given configuration."

// FBAResult is the outcome of a flux balance run. ObjectiveValue is nil
// unless Status is "optimal".
type FBAResult struct {
	RunID          string             `json:"run_id"`
	Status         string             `json:"status"`
	ObjectiveValue *float64           `json:"objective_value"`
	Fluxes         map[string]float64 `json:"fluxes"`
	ShadowPrices   map[string]float64 `json:"shadow_prices"`
	Message        string             `json:"message"`
}

// ODEResult is the outcome of a kinetic run. Concentrations[c][k] is the
// concentration of compound c at T[k].
type ODEResult struct {
	RunID          string               `json:"run_id"`
	Status         string               `json:"status"`
	T              []float64            `json:"t"`
	Concentrations map[string][]float64 `json:"concentrations"`
	Message        string               `json:"message"`
	Steps          int                  `json:"steps,omitempty"`
}

// FinalConcentrations returns the last sample of every non-empty trajectory.
func (r *ODEResult) FinalConcentrations() map[string]float64 {
	out := make(map[string]float64, len(r.Concentrations))
	for id, series := range r.Concentrations {
		if len(series) > 0 {
			out[id] = series[len(series)-1]
		}
	}
	return out
}

// Clone returns a copy sharing no maps with r.
func (r *FBAResult) Clone() *FBAResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.ObjectiveValue != nil {
		v := *r.ObjectiveValue
		out.ObjectiveValue = &v
	}
	out.Fluxes = maps.Clone(r.Fluxes)
	out.ShadowPrices = maps.Clone(r.ShadowPrices)
	return &out
}

// Clone returns a copy sharing no slices or maps with r.
func (r *ODEResult) Clone() *ODEResult {
	if r == nil {
		return nil
	}
	out := *r
	out.T = slices.Clone(r.T)
	if r.Concentrations != nil {
		out.Concentrations = make(map[string][]float64, len(r.Concentrations))
		for id, series := range r.Concentrations {
			out.Concentrations[id] = slices.Clone(series)
		}
	}
	return &out
}

// RunResult holds the result of either mode. Exactly one field is set.
type RunResult struct {
	FBA *FBAResult
	ODE *ODEResult
}

// Clone returns a deep copy of r.
func (r RunResult) Clone() RunResult {
	return RunResult{FBA: r.FBA.Clone(), ODE: r.ODE.Clone()}
}

// Status returns the status of whichever result is set.
func (r RunResult) Status() string {
	switch {
	case r.FBA != nil:
		return r.FBA.Status
	case r.ODE != nil:
		return r.ODE.Status
	default:
		return ""
	}
}

// MarshalJSON encodes the populated result directly.
func (r RunResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.FBA != nil:
		return json.Marshal(r.FBA)
	case r.ODE != nil:
		return json.Marshal(r.ODE)
	default:
		return []byte("null"), nil
	}
}

// WhatIfResult compares a perturbed run against its baseline. DeltaFluxes is
// populated in FBA mode and DeltaFinalConc in ODE mode; the other is empty.
type WhatIfResult struct {
	ScenarioName   string             `json:"scenario_name"`
	Mode           Mode               `json:"mode"`
	Baseline       RunResult          `json:"baseline"`
	Perturbed      RunResult          `json:"perturbed"`
	DeltaFluxes    map[string]float64 `json:"delta_fluxes"`
	DeltaFinalConc map[string]float64 `json:"delta_final_conc"`
}

func newFBAError(runID, status, msg string) *FBAResult {
	return &FBAResult{
		RunID:        runID,
		Status:       status,
		Fluxes:       map[string]float64{},
		ShadowPrices: map[string]float64{},
		Message:      msg,
	}
}

func newODEError(runID, status, msg string) *ODEResult {
	return &ODEResult{
		RunID:          runID,
		Status:         status,
		T:              []float64{},
		Concentrations: map[string][]float64{},
		Message:        msg,
	}
}

// fluxDeltas is perturbed minus baseline over the union of reactions, with
// missing fluxes read as zero.
func fluxDeltas(baseline, perturbed *FBAResult) map[string]float64 {
	out := make(map[string]float64, len(baseline.Fluxes))
	for id, b := range baseline.Fluxes {
		out[id] = perturbed.Fluxes[id] - b
	}
	for id, p := range perturbed.Fluxes {
		if _, ok := out[id]; !ok {
			out[id] = p
		}
	}
	return out
}

// finalConcDeltas compares last samples; a missing or empty trajectory reads as zero.
func finalConcDeltas(baseline, perturbed *ODEResult) map[string]float64 {
	b := baseline.FinalConcentrations()
	p := perturbed.FinalConcentrations()
	out := make(map[string]float64, len(b))
	for id := range baseline.Concentrations {
		out[id] = p[id] - b[id]
	}
	for id := range perturbed.Concentrations {
		if _, ok := out[id]; !ok {
			out[id] = p[id] - b[id]
		}
	}
	return out
}

// rankedEntry is one id/value pair in a report table.
type rankedEntry struct {
	ID    string
	Value float64
}

// rank orders entries by key(value) descending, then by id.
func rank(m map[string]float64, key func(float64) float64) []rankedEntry {
	out := make([]rankedEntry, 0, len(m))
	for id, v := range m {
		out = append(out, rankedEntry{ID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := key(out[i].Value), key(out[j].Value)
		if ki != kj {
			return ki > kj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
