package simulation

import (
	"context"
	"math"
	"testing"

	"github.com/nvandessel/metakg/internal/simulate"
)

// Tolerance is the absolute slack used by the assertions below.
const Tolerance = 1e-6

// TrajectoryTolerance is the slack for comparing samples within one ODE
// trajectory, which carry the integrator's local error.
const TrajectoryTolerance = 1e-4

// Trend is the required direction of a monotonic sequence.
type Trend int

const (
	Increasing Trend = iota // non-decreasing
	Decreasing              // non-increasing
)

func (d Trend) String() string {
	if d == Increasing {
		return "non-decreasing"
	}
	return "non-increasing"
}

// violates reports whether next breaks the trend set by prev.
func (d Trend) violates(prev, next, tol float64) bool {
	if d == Increasing {
		return next < prev-tol
	}
	return next > prev+tol
}

// AssertStatus asserts that every step finished with the given status.
func AssertStatus(t *testing.T, result SimulationResult, want string) {
	t.Helper()
	for _, sr := range result.Steps {
		if got := sr.Run.Status(); got != want {
			t.Errorf("AssertStatus: step %d (%s): status %q, want %q\n%s", sr.Index, sr.Label, got, want, FormatStepDebug(sr))
		}
	}
}

// AssertSteadyState asserts that every optimal FBA step satisfies S·v = 0 on
// the balanced rows of its network.
func AssertSteadyState(t *testing.T, result SimulationResult) {
	t.Helper()
	ctx := context.Background()
	for _, sr := range result.Steps {
		fba := sr.Run.FBA
		if fba == nil || fba.Status != simulate.StatusOptimal {
			continue
		}
		net, err := simulate.BuildNetwork(ctx, result.Store, sr.Config)
		if err != nil {
			t.Fatalf("AssertSteadyState: step %d: BuildNetwork: %v", sr.Index, err)
		}
		for _, i := range net.BalancedRows(sr.Config.ClosedSystem) {
			cpd := net.CompoundIDs[i]
			var sum float64
			for _, rxn := range net.ReactionIDs {
				sum += net.Coefficient(cpd, rxn) * fba.Fluxes[rxn]
			}
			if math.Abs(sum) > Tolerance {
				t.Errorf("AssertSteadyState: step %d: net production of %s = %.6g, want 0", sr.Index, cpd, sum)
			}
		}
	}
}

// AssertFluxWithin asserts that a reaction's flux lies in [lo, hi] at every
// FBA step.
func AssertFluxWithin(t *testing.T, result SimulationResult, reactionID string, lo, hi float64) {
	t.Helper()
	for _, sr := range result.Steps {
		fluxes := sr.Fluxes()
		if fluxes == nil {
			continue
		}
		v, ok := fluxes[reactionID]
		if !ok {
			t.Errorf("AssertFluxWithin: step %d: no flux for %s", sr.Index, reactionID)
			continue
		}
		if v < lo-Tolerance || v > hi+Tolerance {
			t.Errorf("AssertFluxWithin: step %d: flux %s = %.6g not in [%g, %g]", sr.Index, reactionID, v, lo, hi)
		}
	}
}

// AssertFluxMonotonic asserts that a reaction's flux follows the trend
// across steps.
func AssertFluxMonotonic(t *testing.T, result SimulationResult, reactionID string, trend Trend) {
	t.Helper()
	assertAcrossSteps(t, "AssertFluxMonotonic", result, reactionID, trend, StepResult.Fluxes)
}

// AssertFinalMonotonic asserts that a compound's final concentration
// follows the trend across steps.
func AssertFinalMonotonic(t *testing.T, result SimulationResult, compoundID string, trend Trend) {
	t.Helper()
	assertAcrossSteps(t, "AssertFinalMonotonic", result, compoundID, trend, StepResult.Final)
}

func assertAcrossSteps(t *testing.T, name string, result SimulationResult, id string, trend Trend, values func(StepResult) map[string]float64) {
	t.Helper()
	if len(result.Steps) < 2 {
		t.Fatalf("%s: need at least 2 steps, got %d", name, len(result.Steps))
	}
	prev := math.NaN()
	for _, sr := range result.Steps {
		v, ok := values(sr)[id]
		if !ok {
			t.Errorf("%s: step %d: no value for %s", name, sr.Index, id)
			return
		}
		if !math.IsNaN(prev) && trend.violates(prev, v, Tolerance) {
			t.Errorf("%s: step %d: %s went from %.6g to %.6g, want %s", name, sr.Index, id, prev, v, trend)
		}
		prev = v
	}
}

// AssertTrajectoryMonotonic asserts that a compound's concentration follows
// the trend over time within every ODE step.
func AssertTrajectoryMonotonic(t *testing.T, result SimulationResult, compoundID string, trend Trend) {
	t.Helper()
	for _, sr := range result.Steps {
		ode := sr.Run.ODE
		if ode == nil {
			continue
		}
		series, ok := ode.Concentrations[compoundID]
		if !ok {
			t.Errorf("AssertTrajectoryMonotonic: step %d: no trajectory for %s", sr.Index, compoundID)
			continue
		}
		for k := 1; k < len(series); k++ {
			if trend.violates(series[k-1], series[k], TrajectoryTolerance) {
				t.Errorf("AssertTrajectoryMonotonic: step %d: %s at t=%g went from %.6g to %.6g, want %s",
					sr.Index, compoundID, ode.T[k], series[k-1], series[k], trend)
				break
			}
		}
	}
}

// AssertConserved asserts that the weighted sum Σ w·c over the given
// compounds stays constant along every ODE trajectory.
func AssertConserved(t *testing.T, result SimulationResult, weights map[string]float64) {
	t.Helper()
	for _, sr := range result.Steps {
		ode := sr.Run.ODE
		if ode == nil || len(ode.T) == 0 {
			continue
		}
		total := func(k int) float64 {
			var sum float64
			for id, w := range weights {
				sum += w * ode.Concentrations[id][k]
			}
			return sum
		}
		start := total(0)
		for k := range ode.T {
			if got := total(k); math.Abs(got-start) > Tolerance*math.Max(1, math.Abs(start)) {
				t.Errorf("AssertConserved: step %d: total at t=%g is %.9g, started at %.9g", sr.Index, ode.T[k], got, start)
				break
			}
		}
	}
}

// AssertNonNegative asserts that no ODE concentration drops below -Tolerance.
func AssertNonNegative(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, sr := range result.Steps {
		if sr.Run.ODE == nil {
			continue
		}
		for id, series := range sr.Run.ODE.Concentrations {
			for k, c := range series {
				if c < -Tolerance {
					t.Errorf("AssertNonNegative: step %d: %s = %.6g at t=%g", sr.Index, id, c, sr.Run.ODE.T[k])
					break
				}
			}
		}
	}
}

// AssertZeroDelta asserts that a what-if step changed nothing.
func AssertZeroDelta(t *testing.T, sr StepResult) {
	t.Helper()
	if sr.WhatIf == nil {
		t.Fatalf("AssertZeroDelta: step %d is not a what-if step", sr.Index)
	}
	for id, d := range sr.WhatIf.DeltaFluxes {
		if math.Abs(d) > Tolerance {
			t.Errorf("AssertZeroDelta: step %d: flux delta for %s = %.6g", sr.Index, id, d)
		}
	}
	for id, d := range sr.WhatIf.DeltaFinalConc {
		if math.Abs(d) > Tolerance {
			t.Errorf("AssertZeroDelta: step %d: concentration delta for %s = %.6g", sr.Index, id, d)
		}
	}
}

// AssertDelta asserts the sign of a what-if step's delta for id: -1, 0 or 1.
// Flux deltas are checked in FBA mode and final concentration deltas in ODE.
func AssertDelta(t *testing.T, sr StepResult, id string, sign int) {
	t.Helper()
	if sr.WhatIf == nil {
		t.Fatalf("AssertDelta: step %d is not a what-if step", sr.Index)
	}
	deltas := sr.WhatIf.DeltaFluxes
	if sr.WhatIf.Mode == simulate.ModeODE {
		deltas = sr.WhatIf.DeltaFinalConc
	}
	d, ok := deltas[id]
	if !ok {
		t.Errorf("AssertDelta: step %d: no delta for %s", sr.Index, id)
		return
	}
	var got int
	switch {
	case d > Tolerance:
		got = 1
	case d < -Tolerance:
		got = -1
	}
	if got != sign {
		t.Errorf("AssertDelta: step %d: delta for %s = %.6g, want sign %d", sr.Index, id, d, sign)
	}
}
