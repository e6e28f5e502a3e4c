package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// System is an ODE right-hand side dy/dt = f(t, y).
type System interface {
	// Dim returns the state dimension.
	Dim() int
	// Derivative writes f(t, y) into dy. It must not retain y or dy.
	Derivative(t float64, y, dy []float64)
}

// JacobianSystem is a System that can supply ∂f/∂y analytically.
// jac is a row-major Dim×Dim buffer: jac[i*n+j] = ∂f_i/∂y_j.
type JacobianSystem interface {
	System
	Jacobian(t float64, y []float64, jac []float64)
}

// Settings control adaptive step selection.
type Settings struct {
	RTol float64
	ATol float64
	// MaxStep caps the step size. Zero leaves it to the error controller.
	MaxStep float64
	// InitialStep overrides the automatic first-step estimate when positive.
	InitialStep float64
	// MaxSteps bounds accepted plus rejected step attempts.
	MaxSteps int
}

// DefaultSettings returns tolerances suited to concentration-scale kinetics.
func DefaultSettings() Settings {
	return Settings{RTol: 1e-4, ATol: 1e-6, MaxSteps: 100000}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.RTol <= 0 {
		s.RTol = d.RTol
	}
	if s.ATol <= 0 {
		s.ATol = d.ATol
	}
	if s.MaxSteps <= 0 {
		s.MaxSteps = d.MaxSteps
	}
	return s
}

// Trajectory is the integrated solution sampled at the requested times.
// Y[k] is the state at T[k].
type Trajectory struct {
	T           []float64
	Y           [][]float64
	Steps       int
	Rejected    int
	Evaluations int
}

// Integrator advances a System from tEval[0] and samples it at every tEval point.
type Integrator interface {
	Name() string
	Integrate(ctx context.Context, sys System, y0 []float64, tEval []float64, settings Settings) (*Trajectory, error)
}

var (
	// ErrMaxSteps is returned when the step budget is exhausted.
	ErrMaxSteps = errors.New("maximum number of steps exceeded")
	// ErrStepTooSmall is returned when the controller cannot make progress.
	ErrStepTooSmall = errors.New("step size fell below the minimum")
)

// stepper performs one trial step of an embedded method.
type stepper interface {
	// errorExponent is 1/(q+1) for the lower embedded order q.
	errorExponent() float64
	// attempt advances (t, y) with derivative f by h, returning the new state,
	// its derivative, and the local error estimate.
	attempt(t, h float64, y, f []float64) (yNew, fNew, errEst []float64, err error)
}

// countingSystem tracks right-hand side evaluations.
type countingSystem struct {
	System
	evals int
}

func (c *countingSystem) Derivative(t float64, y, dy []float64) {
	c.evals++
	c.System.Derivative(t, y, dy)
}

// integrate is the shared adaptive driver: error control, step bounds,
// cancellation, and cubic Hermite sampling onto tEval.
func integrate(ctx context.Context, sys *countingSystem, st stepper, y0, tEval []float64, s Settings) (traj *Trajectory, err error) {
	defer func() {
		if r := recover(); r != nil {
			traj, err = nil, fmt.Errorf("integrator panicked: %v", r)
		}
	}()

	n := sys.Dim()
	if len(y0) != n {
		return nil, fmt.Errorf("initial state has %d entries, system has %d", len(y0), n)
	}
	if len(tEval) == 0 {
		return nil, errors.New("no evaluation times")
	}
	for k := 1; k < len(tEval); k++ {
		if !(tEval[k] >= tEval[k-1]) {
			return nil, fmt.Errorf("evaluation times must be non-decreasing (index %d)", k)
		}
	}
	s = s.withDefaults()

	if n == 0 {
		traj = &Trajectory{T: append([]float64(nil), tEval...), Y: make([][]float64, len(tEval))}
		for k := range traj.Y {
			traj.Y[k] = []float64{}
		}
		return traj, nil
	}

	t := tEval[0]
	tEnd := tEval[len(tEval)-1]
	y := append([]float64(nil), y0...)
	f := make([]float64, n)
	sys.Derivative(t, y, f)

	traj = &Trajectory{T: append([]float64(nil), tEval...), Y: make([][]float64, len(tEval))}
	next := 0
	for next < len(tEval) && tEval[next] <= t {
		traj.Y[next] = append([]float64(nil), y...)
		next++
	}
	if next == len(tEval) {
		traj.Evaluations = sys.evals
		return traj, nil
	}

	h := s.InitialStep
	if h <= 0 {
		h = initialStep(y, f, tEnd-t, s)
	}
	minStep := 1e-12 * math.Max(1, math.Abs(tEnd))
	exp := st.errorExponent()

	attempts := 0
	for next < len(tEval) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempts >= s.MaxSteps {
			return nil, fmt.Errorf("%w (%d) at t=%g", ErrMaxSteps, s.MaxSteps, t)
		}
		attempts++

		if s.MaxStep > 0 && h > s.MaxStep {
			h = s.MaxStep
		}
		last := false
		if t+h >= tEnd || tEnd-(t+h) < minStep {
			h = tEnd - t
			last = true
		}

		yNew, fNew, errEst, serr := st.attempt(t, h, y, f)
		norm := math.Inf(1)
		if serr == nil {
			norm = errorNorm(errEst, y, yNew, s.RTol, s.ATol)
		}
		if math.IsNaN(norm) || norm > 1 {
			traj.Rejected++
			if math.IsNaN(norm) || math.IsInf(norm, 1) {
				h *= 0.25
			} else {
				h *= math.Max(0.2, 0.9*math.Pow(norm, -exp))
			}
			if h < minStep {
				if serr != nil {
					return nil, fmt.Errorf("%w at t=%g: %v", ErrStepTooSmall, t, serr)
				}
				return nil, fmt.Errorf("%w at t=%g", ErrStepTooSmall, t)
			}
			continue
		}

		tNew := t + h
		if last {
			tNew = tEnd
		}
		for next < len(tEval) && tEval[next] <= tNew {
			traj.Y[next] = hermite(t, tNew, y, f, yNew, fNew, tEval[next])
			next++
		}
		t, y, f = tNew, yNew, fNew
		traj.Steps++

		factor := 5.0
		if norm > 0 {
			factor = math.Min(5, math.Max(0.2, 0.9*math.Pow(norm, -exp)))
		}
		h *= factor
	}

	traj.Evaluations = sys.evals
	return traj, nil
}

// errorNorm is the RMS of the error scaled by atol + rtol·max(|y|, |yNew|).
func errorNorm(errEst, y, yNew []float64, rtol, atol float64) float64 {
	if len(errEst) == 0 {
		return 0
	}
	sum := 0.0
	for i, e := range errEst {
		if math.IsNaN(yNew[i]) || math.IsInf(yNew[i], 0) {
			return math.NaN()
		}
		sc := atol + rtol*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
		r := e / sc
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(errEst)))
}

// initialStep estimates a first step from the scaled state and derivative norms.
func initialStep(y, f []float64, span float64, s Settings) float64 {
	d0, d1 := 0.0, 0.0
	for i := range y {
		sc := s.ATol + s.RTol*math.Abs(y[i])
		d0 += (y[i] / sc) * (y[i] / sc)
		d1 += (f[i] / sc) * (f[i] / sc)
	}
	n := float64(len(y))
	if n == 0 {
		return span
	}
	d0 = math.Sqrt(d0 / n)
	d1 = math.Sqrt(d1 / n)

	h := 1e-6
	if d0 > 1e-5 && d1 > 1e-5 {
		h = 0.01 * d0 / d1
	}
	if h > span {
		h = span
	}
	if s.MaxStep > 0 && h > s.MaxStep {
		h = s.MaxStep
	}
	return h
}

// hermite evaluates the cubic Hermite interpolant on [t0, t1] at t.
func hermite(t0, t1 float64, y0, f0, y1, f1 []float64, t float64) []float64 {
	out := make([]float64, len(y0))
	h := t1 - t0
	if h == 0 {
		copy(out, y1)
		return out
	}
	s := (t - t0) / h
	s2, s3 := s*s, s*s*s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	for i := range out {
		out[i] = h00*y0[i] + h10*h*f0[i] + h01*y1[i] + h11*h*f1[i]
	}
	return out
}

// New returns the integrator registered under name: "rk45" or "rosenbrock23".
func New(name string) (Integrator, error) {
	switch name {
	case MethodRK45:
		return DormandPrince{}, nil
	case MethodRosenbrock23, "":
		return Rosenbrock23{}, nil
	default:
		return nil, fmt.Errorf("unknown integration method %q", name)
	}
}

// Method names accepted by New.
const (
	MethodRK45         = "rk45"
	MethodRosenbrock23 = "rosenbrock23"
)
