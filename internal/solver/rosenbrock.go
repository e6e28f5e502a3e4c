package solver

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Rosenbrock23 is the L-stable, linearly implicit 2(3) Rosenbrock pair
// (Shampine & Reichelt). It uses an analytic Jacobian when the system
// implements JacobianSystem and forward differences otherwise.
type Rosenbrock23 struct{}

// Name implements Integrator.
func (Rosenbrock23) Name() string { return MethodRosenbrock23 }

// Integrate implements Integrator.
func (Rosenbrock23) Integrate(ctx context.Context, sys System, y0 []float64, tEval []float64, settings Settings) (*Trajectory, error) {
	cs := &countingSystem{System: sys}
	st := &rosenbrockStepper{sys: cs, n: sys.Dim()}
	if js, ok := sys.(JacobianSystem); ok {
		st.analytic = js
	}
	return integrate(ctx, cs, st, y0, tEval, settings)
}

var (
	rbD   = 1 / (2 + math.Sqrt2)
	rbE32 = 6 + math.Sqrt2
)

type rosenbrockStepper struct {
	sys      System
	analytic JacobianSystem
	n        int

	// Jacobian cache keyed on the base point; rejected steps reuse it.
	jt   float64
	jy   []float64
	jac  []float64
	dfdt []float64
}

func (r *rosenbrockStepper) errorExponent() float64 { return 1.0 / 3 }

func (r *rosenbrockStepper) refresh(t float64, y, f []float64) {
	if r.jy != nil && r.jt == t && equalSlices(r.jy, y) {
		return
	}
	n := r.n
	if r.jac == nil {
		r.jac = make([]float64, n*n)
		r.dfdt = make([]float64, n)
	}
	if r.analytic != nil {
		r.analytic.Jacobian(t, y, r.jac)
	} else {
		yp := append([]float64(nil), y...)
		fp := make([]float64, n)
		for j := 0; j < n; j++ {
			delta := math.Sqrt(2.220446049250313e-16) * math.Max(1, math.Abs(y[j]))
			yp[j] = y[j] + delta
			r.sys.Derivative(t, yp, fp)
			for i := 0; i < n; i++ {
				r.jac[i*n+j] = (fp[i] - f[i]) / delta
			}
			yp[j] = y[j]
		}
	}

	// Time derivative by forward difference.
	dt := math.Sqrt(2.220446049250313e-16) * math.Max(1, math.Abs(t))
	ft := make([]float64, n)
	r.sys.Derivative(t+dt, y, ft)
	for i := range ft {
		r.dfdt[i] = (ft[i] - f[i]) / dt
	}

	r.jt = t
	r.jy = append(r.jy[:0], y...)
}

func (r *rosenbrockStepper) attempt(t, h float64, y, f0 []float64) ([]float64, []float64, []float64, error) {
	n := r.n
	r.refresh(t, y, f0)

	// W = I - h·d·J
	w := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -h * rbD * r.jac[i*n+j]
			if i == j {
				v++
			}
			w.Set(i, j, v)
		}
	}
	var lu mat.LU
	lu.Factorize(w)
	if lu.Det() == 0 {
		return nil, nil, nil, fmt.Errorf("iteration matrix is singular at t=%g", t)
	}

	solve := func(rhs []float64) ([]float64, error) {
		var x mat.VecDense
		if err := lu.SolveVecTo(&x, false, mat.NewVecDense(n, rhs)); err != nil {
			return nil, err
		}
		return append([]float64(nil), x.RawVector().Data...), nil
	}

	rhs := make([]float64, n)
	for i := range rhs {
		rhs[i] = f0[i] + h*rbD*r.dfdt[i]
	}
	k1, err := solve(rhs)
	if err != nil {
		return nil, nil, nil, err
	}

	tmp := make([]float64, n)
	for i := range tmp {
		tmp[i] = y[i] + 0.5*h*k1[i]
	}
	f1 := make([]float64, n)
	r.sys.Derivative(t+0.5*h, tmp, f1)

	for i := range rhs {
		rhs[i] = f1[i] - k1[i]
	}
	k2, err := solve(rhs)
	if err != nil {
		return nil, nil, nil, err
	}
	for i := range k2 {
		k2[i] += k1[i]
	}

	yNew := make([]float64, n)
	for i := range yNew {
		yNew[i] = y[i] + h*k2[i]
	}
	f2 := make([]float64, n)
	r.sys.Derivative(t+h, yNew, f2)

	for i := range rhs {
		rhs[i] = f2[i] - rbE32*(k2[i]-f1[i]) - 2*(k1[i]-f0[i]) + h*rbD*r.dfdt[i]
	}
	k3, err := solve(rhs)
	if err != nil {
		return nil, nil, nil, err
	}

	errEst := make([]float64, n)
	for i := range errEst {
		errEst[i] = h / 6 * (k1[i] - 2*k2[i] + k3[i])
	}
	return yNew, f2, errEst, nil
}

func equalSlices(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
