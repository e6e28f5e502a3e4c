package solver

import "context"

// DormandPrince is the explicit 5(4) Runge-Kutta pair with FSAL.
// It is efficient on non-stiff problems.
type DormandPrince struct{}

// Name implements Integrator.
func (DormandPrince) Name() string { return MethodRK45 }

// Integrate implements Integrator.
func (DormandPrince) Integrate(ctx context.Context, sys System, y0 []float64, tEval []float64, settings Settings) (*Trajectory, error) {
	cs := &countingSystem{System: sys}
	return integrate(ctx, cs, &dopriStepper{sys: cs}, y0, tEval, settings)
}

// Butcher tableau.
const (
	dpC2 = 1.0 / 5
	dpC3 = 3.0 / 10
	dpC4 = 4.0 / 5
	dpC5 = 8.0 / 9

	dpA21 = 1.0 / 5
	dpA31 = 3.0 / 40
	dpA32 = 9.0 / 40
	dpA41 = 44.0 / 45
	dpA42 = -56.0 / 15
	dpA43 = 32.0 / 9
	dpA51 = 19372.0 / 6561
	dpA52 = -25360.0 / 2187
	dpA53 = 64448.0 / 6561
	dpA54 = -212.0 / 729
	dpA61 = 9017.0 / 3168
	dpA62 = -355.0 / 33
	dpA63 = 46732.0 / 5247
	dpA64 = 49.0 / 176
	dpA65 = -5103.0 / 18656
	dpA71 = 35.0 / 384
	dpA73 = 500.0 / 1113
	dpA74 = 125.0 / 192
	dpA75 = -2187.0 / 6784
	dpA76 = 11.0 / 84

	// 5th minus 4th order weights
	dpE1 = 71.0 / 57600
	dpE3 = -71.0 / 16695
	dpE4 = 71.0 / 1920
	dpE5 = -17253.0 / 339200
	dpE6 = 22.0 / 525
	dpE7 = -1.0 / 40
)

type dopriStepper struct {
	sys System
}

func (d *dopriStepper) errorExponent() float64 { return 1.0 / 5 }

func (d *dopriStepper) attempt(t, h float64, y, k1 []float64) ([]float64, []float64, []float64, error) {
	n := len(y)
	tmp := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	k5 := make([]float64, n)
	k6 := make([]float64, n)
	k7 := make([]float64, n)

	for i := range tmp {
		tmp[i] = y[i] + h*dpA21*k1[i]
	}
	d.sys.Derivative(t+dpC2*h, tmp, k2)

	for i := range tmp {
		tmp[i] = y[i] + h*(dpA31*k1[i]+dpA32*k2[i])
	}
	d.sys.Derivative(t+dpC3*h, tmp, k3)

	for i := range tmp {
		tmp[i] = y[i] + h*(dpA41*k1[i]+dpA42*k2[i]+dpA43*k3[i])
	}
	d.sys.Derivative(t+dpC4*h, tmp, k4)

	for i := range tmp {
		tmp[i] = y[i] + h*(dpA51*k1[i]+dpA52*k2[i]+dpA53*k3[i]+dpA54*k4[i])
	}
	d.sys.Derivative(t+dpC5*h, tmp, k5)

	for i := range tmp {
		tmp[i] = y[i] + h*(dpA61*k1[i]+dpA62*k2[i]+dpA63*k3[i]+dpA64*k4[i]+dpA65*k5[i])
	}
	d.sys.Derivative(t+h, tmp, k6)

	yNew := make([]float64, n)
	for i := range yNew {
		yNew[i] = y[i] + h*(dpA71*k1[i]+dpA73*k3[i]+dpA74*k4[i]+dpA75*k5[i]+dpA76*k6[i])
	}
	d.sys.Derivative(t+h, yNew, k7)

	errEst := make([]float64, n)
	for i := range errEst {
		errEst[i] = h * (dpE1*k1[i] + dpE3*k3[i] + dpE4*k4[i] + dpE5*k5[i] + dpE6*k6[i] + dpE7*k7[i])
	}
	return yNew, k7, errEst, nil
}
