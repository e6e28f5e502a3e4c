package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nvandessel/metakg/internal/logging"
	"github.com/nvandessel/metakg/internal/solver"
)

// minKeq keeps the Haldane reverse rate finite.
const minKeq = 1e-12

// RunODE integrates Michaelis-Menten kinetics over the config's scope.
//
// Each reaction's forward rate is Vmax·Π c/(Km+c) over its substrates.
// Irreversible reactions never run backwards. Reversible reactions with
// products subtract a reverse term with Vmax/Keq and product Km scaled by Keq.
// Concentrations are clamped at zero inside the rate laws.
func (s *Simulator) RunODE(ctx context.Context, cfg SimulationConfig) *ODEResult {
	rec := runRecord{id: s.newID(), mode: ModeODE, start: time.Now()}
	res := s.runODE(ctx, cfg, &rec)
	rec.status, rec.message, rec.steps = res.Status, res.Message, res.Steps
	s.finish(rec)
	return res
}

func (s *Simulator) runODE(ctx context.Context, cfg SimulationConfig, rec *runRecord) (res *ODEResult) {
	defer func() {
		if r := recover(); r != nil {
			res = newODEError(rec.id, StatusError, fmt.Sprintf("ODE integration panicked: %v", r))
		}
	}()

	if cfg.TPoints < 2 {
		return newODEError(rec.id, StatusError, fmt.Sprintf("t_points must be at least 2, got %d", cfg.TPoints))
	}
	if !(cfg.TEnd > 0) || math.IsInf(cfg.TEnd, 0) {
		return newODEError(rec.id, StatusError, fmt.Sprintf("t_end must be positive and finite, got %g", cfg.TEnd))
	}

	defaultConc := s.defaults.Concentration
	if cfg.DefaultConcentration != nil {
		defaultConc = *cfg.DefaultConcentration
	}
	if defaultConc < 0 || math.IsNaN(defaultConc) || math.IsInf(defaultConc, 0) {
		return newODEError(rec.id, StatusError, fmt.Sprintf("default_concentration must be non-negative and finite, got %g", defaultConc))
	}

	integrator := s.integrator
	if cfg.Method != "" {
		in, err := solver.New(cfg.Method)
		if err != nil {
			return newODEError(rec.id, StatusError, err.Error())
		}
		integrator = in
	}

	net, err := BuildNetwork(ctx, s.src, cfg)
	if err != nil {
		return newODEError(rec.id, StatusError, fmt.Sprintf("failed to build stoichiometric matrix: %v", err))
	}
	rec.reactions, rec.compounds = len(net.ReactionIDs), len(net.CompoundIDs)
	if len(net.ReactionIDs) == 0 {
		return newODEError(rec.id, StatusError, MsgNoReactions)
	}

	params, err := ResolveKinetics(ctx, s.src, net.ReactionIDs, cfg, s.defaults)
	if err != nil {
		return newODEError(rec.id, StatusError, fmt.Sprintf("failed to resolve kinetics: %v", err))
	}
	if s.logger.Enabled(ctx, logging.LevelTrace) {
		for _, id := range net.ReactionIDs {
			p := params[id]
			s.logger.Log(ctx, logging.LevelTrace, "resolved kinetics",
				"run_id", rec.id, "reaction", id,
				"vmax", p.Vmax, "km", p.Km, "keq", p.Keq,
				"reversible", net.Reversible[id])
		}
	}

	sys := newRateSystem(net, params)

	y0 := make([]float64, len(net.CompoundIDs))
	for i, id := range net.CompoundIDs {
		if v, ok := cfg.InitialConcentrations[id]; ok {
			y0[i] = v
		} else {
			y0[i] = defaultConc
		}
	}

	tEval := make([]float64, cfg.TPoints)
	for k := range tEval {
		tEval[k] = cfg.TEnd * float64(k) / float64(cfg.TPoints-1)
	}

	traj, err := integrator.Integrate(ctx, sys, y0, tEval, s.odeSettings)
	if err != nil {
		if errors.Is(err, solver.ErrMaxSteps) || errors.Is(err, solver.ErrStepTooSmall) {
			return newODEError(rec.id, StatusFailed, fmt.Sprintf("ODE solver did not converge: %v", err))
		}
		return newODEError(rec.id, StatusError, fmt.Sprintf("ODE solver raised: %v", err))
	}
	s.metrics.ObserveODESteps(traj.Steps)
	s.logger.Debug("ode integrated",
		"run_id", rec.id,
		"method", integrator.Name(),
		"steps", traj.Steps,
		"rejected", traj.Rejected,
		"evaluations", traj.Evaluations)

	concs := make(map[string][]float64, len(net.CompoundIDs))
	for i, id := range net.CompoundIDs {
		series := make([]float64, len(traj.T))
		for k := range traj.T {
			series[k] = traj.Y[k][i]
		}
		concs[id] = series
	}

	return &ODEResult{
		RunID:          rec.id,
		Status:         StatusOK,
		T:              traj.T,
		Concentrations: concs,
		Steps:          traj.Steps,
		Message: fmt.Sprintf("Integration OK. t=[0, %g], %d time points, %d compounds, %d reactions.",
			cfg.TEnd, len(traj.T), len(net.CompoundIDs), len(net.ReactionIDs)),
	}
}

// rateTerm is one participant of a rate law.
type rateTerm struct {
	idx   int
	coeff float64 // stoichiometric magnitude
	km    float64
}

// rateLaw is a reaction's precomputed Michaelis-Menten law.
type rateLaw struct {
	substrates []rateTerm
	products   []rateTerm // km already scaled by keq
	vmax       float64
	vrev       float64
	reversible bool
}

// rateSystem is dy/dt = S·v(y) for a Network.
type rateSystem struct {
	n    int
	laws []rateLaw
}

var _ solver.JacobianSystem = (*rateSystem)(nil)

func newRateSystem(net *Network, params map[string]RateParams) *rateSystem {
	sys := &rateSystem{n: len(net.CompoundIDs), laws: make([]rateLaw, len(net.ReactionIDs))}
	for j, rxnID := range net.ReactionIDs {
		p := params[rxnID]
		keq := math.Max(p.Keq, minKeq)
		law := rateLaw{
			vmax:       p.Vmax,
			vrev:       p.Vmax / keq,
			reversible: net.Reversible[rxnID],
		}
		for i, cpdID := range net.CompoundIDs {
			v := net.at(i, j)
			switch {
			case v < 0:
				law.substrates = append(law.substrates, rateTerm{idx: i, coeff: -v, km: p.KmFor(cpdID)})
			case v > 0:
				law.products = append(law.products, rateTerm{idx: i, coeff: v, km: p.KmFor(cpdID) * keq})
			}
		}
		sys.laws[j] = law
	}
	return sys
}

func (r *rateSystem) Dim() int { return r.n }

func (r *rateSystem) Derivative(_ float64, y, dy []float64) {
	for i := range dy {
		dy[i] = 0
	}
	for k := range r.laws {
		law := &r.laws[k]
		v := law.rate(y)
		if v == 0 {
			continue
		}
		for _, s := range law.substrates {
			dy[s.idx] -= s.coeff * v
		}
		for _, p := range law.products {
			dy[p.idx] += p.coeff * v
		}
	}
}

func (r *rateSystem) Jacobian(_ float64, y []float64, jac []float64) {
	for i := range jac {
		jac[i] = 0
	}
	grad := make([]float64, r.n)
	for k := range r.laws {
		law := &r.laws[k]
		for i := range grad {
			grad[i] = 0
		}
		if !law.gradient(y, grad) {
			continue
		}
		for col, g := range grad {
			if g == 0 {
				continue
			}
			for _, s := range law.substrates {
				jac[s.idx*r.n+col] -= s.coeff * g
			}
			for _, p := range law.products {
				jac[p.idx*r.n+col] += p.coeff * g
			}
		}
	}
}

// saturation is c/(km+c) with c clamped at zero, and its derivative in y.
func saturation(y, km float64) (f, df float64) {
	c := math.Max(y, 0)
	d := km + c
	if d <= 0 {
		return 0, 0
	}
	f = c / d
	if y >= 0 {
		df = km / (d * d)
	}
	return f, df
}

func (law *rateLaw) rate(y []float64) float64 {
	if len(law.substrates) == 0 {
		return 0
	}
	fwd := law.vmax
	for _, s := range law.substrates {
		f, _ := saturation(y[s.idx], s.km)
		fwd *= f
	}
	if !law.reversible {
		return math.Max(0, fwd)
	}
	if len(law.products) == 0 {
		return fwd
	}
	rev := law.vrev
	for _, p := range law.products {
		f, _ := saturation(y[p.idx], p.km)
		rev *= f
	}
	return fwd - rev
}

// gradient adds ∂rate/∂y into grad and reports whether any term was written.
func (law *rateLaw) gradient(y, grad []float64) bool {
	if len(law.substrates) == 0 {
		return false
	}
	fwd := productGradient(law.vmax, law.substrates, y, grad, 1)
	if !law.reversible {
		if fwd < 0 {
			for _, s := range law.substrates {
				grad[s.idx] = 0
			}
		}
		return true
	}
	if len(law.products) > 0 {
		productGradient(law.vrev, law.products, y, grad, -1)
	}
	return true
}

// productGradient adds sign·∂(scale·Π f_t)/∂y for each term t into grad and
// returns scale·Π f_t.
func productGradient(scale float64, terms []rateTerm, y, grad []float64, sign float64) float64 {
	f := make([]float64, len(terms))
	df := make([]float64, len(terms))
	total := scale
	for t, term := range terms {
		f[t], df[t] = saturation(y[term.idx], term.km)
		total *= f[t]
	}
	for t, term := range terms {
		if df[t] == 0 {
			continue
		}
		g := scale * df[t]
		for u := range terms {
			if u != t {
				g *= f[u]
			}
		}
		grad[term.idx] += sign * g
	}
	return total
}
