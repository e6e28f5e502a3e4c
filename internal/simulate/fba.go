package simulate

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/metakg/internal/solver"
)

// RunFBA solves
//
//	minimize    c·v
//	subject to  S_b·v = 0
//	            lb ≤ v ≤ ub
//
// where S_b holds the balanced rows of the scope's stoichiometric matrix.
//
// Bounds come from cfg.FluxBounds when set, otherwise (-cap, cap) for
// reversible and (0, cap) for irreversible reactions. With an in-scope
// ObjectiveReaction, c is ±1 on that reaction. Otherwise every reaction with a
// non-negative lower bound gets weight ±1/n, rewarding total forward flux
// through irreversible steps; reversible reactions carry no weight.
func (s *Simulator) RunFBA(ctx context.Context, cfg SimulationConfig) *FBAResult {
	rec := runRecord{id: s.newID(), mode: ModeFBA, start: time.Now()}
	res := s.runFBA(ctx, cfg, &rec)
	rec.status, rec.message = res.Status, res.Message
	s.finish(rec)
	return res
}

func (s *Simulator) runFBA(ctx context.Context, cfg SimulationConfig, rec *runRecord) *FBAResult {
	net, err := BuildNetwork(ctx, s.src, cfg)
	if err != nil {
		return newFBAError(rec.id, StatusError, fmt.Sprintf("failed to build stoichiometric matrix: %v", err))
	}
	rec.reactions, rec.compounds = len(net.ReactionIDs), len(net.CompoundIDs)
	if len(net.ReactionIDs) == 0 {
		return newFBAError(rec.id, StatusError, MsgNoReactions)
	}
	if s.maxFBA > 0 && len(net.ReactionIDs) > s.maxFBA {
		return newFBAError(rec.id, StatusError,
			fmt.Sprintf("scope has %d reactions; FBA is limited to %d", len(net.ReactionIDs), s.maxFBA))
	}

	lower, upper := s.fluxBounds(net, cfg)
	for j, id := range net.ReactionIDs {
		if lower[j] > upper[j] {
			return newFBAError(rec.id, StatusInfeasible,
				fmt.Sprintf("flux bounds for %s are inverted: lower %g > upper %g", id, lower[j], upper[j]))
		}
	}

	c := objective(net, cfg, lower)
	rows := net.BalancedRows(cfg.ClosedSystem)

	prob := solver.LinearProgram{
		C:     c,
		Beq:   make([]float64, len(rows)),
		Lower: lower,
		Upper: upper,
	}
	if len(rows) > 0 {
		prob.Aeq = mat.NewDense(len(rows), len(net.ReactionIDs), nil)
		for k, i := range rows {
			prob.Aeq.SetRow(k, mat.Row(nil, i, net.S))
		}
	}

	s.logger.Debug("fba problem",
		"run_id", rec.id,
		"reactions", len(net.ReactionIDs),
		"compounds", len(net.CompoundIDs),
		"balanced", len(rows),
		"closed", cfg.ClosedSystem)

	sol, err := s.lp.Solve(ctx, prob)
	if err != nil {
		s.metrics.ObserveLPSolve(string(solver.LPError))
		return newFBAError(rec.id, StatusError, fmt.Sprintf("LP solver rejected the problem: %v", err))
	}
	s.metrics.ObserveLPSolve(string(sol.Status))
	s.logger.Debug("fba solved", "run_id", rec.id, "status", sol.Status, "message", sol.Message)

	switch sol.Status {
	case solver.LPOptimal:
	case solver.LPInfeasible:
		return newFBAError(rec.id, StatusInfeasible, sol.Message)
	case solver.LPUnbounded:
		return newFBAError(rec.id, StatusUnbounded, sol.Message)
	default:
		return newFBAError(rec.id, StatusError, sol.Message)
	}

	sign := 1.0
	if cfg.Maximize {
		sign = -1.0
	}
	obj := positiveZero(sign * sol.Objective)

	fluxes := make(map[string]float64, len(net.ReactionIDs))
	for j, id := range net.ReactionIDs {
		fluxes[id] = positiveZero(sol.X[j])
	}

	// Unbalanced compounds have no constraint and a shadow price of zero.
	shadow := map[string]float64{}
	if sol.Duals != nil || len(rows) == 0 {
		for _, id := range net.CompoundIDs {
			shadow[id] = 0
		}
		for k, i := range rows {
			shadow[net.CompoundIDs[i]] = positiveZero(sign * sol.Duals[k])
		}
	}

	return &FBAResult{
		RunID:          rec.id,
		Status:         StatusOptimal,
		ObjectiveValue: &obj,
		Fluxes:         fluxes,
		ShadowPrices:   shadow,
		Message:        fmt.Sprintf("Optimal. Objective = %.6g", obj),
	}
}

// fluxBounds returns per-reaction bounds with non-finite values clamped to
// the flux cap.
func (s *Simulator) fluxBounds(net *Network, cfg SimulationConfig) (lower, upper []float64) {
	fluxCap := s.defaults.FluxCap
	lower = make([]float64, len(net.ReactionIDs))
	upper = make([]float64, len(net.ReactionIDs))
	for j, id := range net.ReactionIDs {
		b, ok := cfg.FluxBounds[id]
		if !ok {
			b = defaultBounds(net.Reversible[id], fluxCap)
		}
		lower[j] = clampBound(b.Lower, -fluxCap, fluxCap)
		upper[j] = clampBound(b.Upper, fluxCap, fluxCap)
	}
	return lower, upper
}

// defaultBounds is (-cap, cap) for reversible and (0, cap) for irreversible reactions.
func defaultBounds(reversible bool, fluxCap float64) Bounds {
	if reversible {
		return Bounds{Lower: -fluxCap, Upper: fluxCap}
	}
	return Bounds{Lower: 0, Upper: fluxCap}
}

func clampBound(v, ifNaN, fluxCap float64) float64 {
	switch {
	case math.IsNaN(v):
		return ifNaN
	case math.IsInf(v, 1):
		return fluxCap
	case math.IsInf(v, -1):
		return -fluxCap
	default:
		return v
	}
}

// objective builds the minimization vector; maximizing negates the weights.
func objective(net *Network, cfg SimulationConfig, lower []float64) []float64 {
	n := len(net.ReactionIDs)
	c := make([]float64, n)
	sign := 1.0
	if cfg.Maximize {
		sign = -1.0
	}
	if cfg.ObjectiveReaction != "" {
		if j, ok := net.ReactionIndex(cfg.ObjectiveReaction); ok {
			c[j] = sign
			return c
		}
	}
	for j := range c {
		if lower[j] >= 0 {
			c[j] = sign / float64(n)
		}
	}
	return c
}

// positiveZero maps -0 to 0 so reports never show "-0".
func positiveZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
