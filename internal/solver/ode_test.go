package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decay is y' = -k·y.
type decay struct{ k float64 }

func (d decay) Dim() int { return 1 }
func (d decay) Derivative(_ float64, y, dy []float64) {
	dy[0] = -d.k * y[0]
}

// stiffCosine is y' = -λ(y - cos t); the solution relaxes onto cos t.
type stiffCosine struct{ lambda float64 }

func (s stiffCosine) Dim() int { return 1 }
func (s stiffCosine) Derivative(t float64, y, dy []float64) {
	dy[0] = -s.lambda * (y[0] - math.Cos(t))
}

// conversion is A -> B with first-order kinetics and an analytic Jacobian.
type conversion struct{ k float64 }

func (c conversion) Dim() int { return 2 }
func (c conversion) Derivative(_ float64, y, dy []float64) {
	r := c.k * y[0]
	dy[0] = -r
	dy[1] = r
}
func (c conversion) Jacobian(_ float64, _ []float64, jac []float64) {
	jac[0], jac[1] = -c.k, 0
	jac[2], jac[3] = c.k, 0
}

type exploding struct{}

func (exploding) Dim() int { return 1 }
func (exploding) Derivative(_ float64, _, _ []float64) {
	panic("overflow")
}

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return out
}

func integrators() []Integrator {
	return []Integrator{DormandPrince{}, Rosenbrock23{}}
}

func TestIntegrators_ExponentialDecay(t *testing.T) {
	tEval := linspace(0, 5, 11)
	settings := Settings{RTol: 1e-7, ATol: 1e-10}
	for _, in := range integrators() {
		t.Run(in.Name(), func(t *testing.T) {
			traj, err := in.Integrate(context.Background(), decay{k: 1}, []float64{1}, tEval, settings)
			require.NoError(t, err)
			require.Len(t, traj.Y, len(tEval))
			for k, tk := range tEval {
				assert.InDelta(t, math.Exp(-tk), traj.Y[k][0], 1e-4, "t=%g", tk)
			}
			assert.Equal(t, tEval, traj.T)
			assert.Greater(t, traj.Steps, 0)
		})
	}
}

func TestRosenbrock23_StiffProblem(t *testing.T) {
	tEval := linspace(0, 10, 21)
	sys := stiffCosine{lambda: 1000}
	settings := DefaultSettings()

	rb, err := Rosenbrock23{}.Integrate(context.Background(), sys, []float64{0}, tEval, settings)
	require.NoError(t, err)
	assert.InDelta(t, math.Cos(10), rb.Y[len(tEval)-1][0], 1e-2)

	rk, err := DormandPrince{}.Integrate(context.Background(), sys, []float64{0}, tEval, settings)
	require.NoError(t, err)
	assert.Less(t, rb.Steps, rk.Steps, "implicit method should take fewer steps on a stiff problem")
}

func TestIntegrators_ConservesMass(t *testing.T) {
	tEval := linspace(0, 20, 50)
	for _, in := range integrators() {
		t.Run(in.Name(), func(t *testing.T) {
			traj, err := in.Integrate(context.Background(), conversion{k: 0.5}, []float64{2, 1}, tEval, DefaultSettings())
			require.NoError(t, err)
			for k := range traj.Y {
				assert.InDelta(t, 3.0, traj.Y[k][0]+traj.Y[k][1], 1e-3)
				if k > 0 {
					assert.LessOrEqual(t, traj.Y[k][0], traj.Y[k-1][0]+1e-9)
				}
			}
		})
	}
}

func TestIntegrators_MaxSteps(t *testing.T) {
	settings := Settings{MaxSteps: 3, RTol: 1e-10, ATol: 1e-12}
	for _, in := range integrators() {
		t.Run(in.Name(), func(t *testing.T) {
			_, err := in.Integrate(context.Background(), decay{k: 1}, []float64{1}, linspace(0, 100, 5), settings)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMaxSteps), "got %v", err)
		})
	}
}

func TestIntegrators_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, in := range integrators() {
		_, err := in.Integrate(ctx, decay{k: 1}, []float64{1}, linspace(0, 1, 3), DefaultSettings())
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestIntegrators_RecoversPanics(t *testing.T) {
	for _, in := range integrators() {
		_, err := in.Integrate(context.Background(), exploding{}, []float64{1}, linspace(0, 1, 3), DefaultSettings())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	}
}

func TestIntegrators_InputValidation(t *testing.T) {
	in := Rosenbrock23{}
	_, err := in.Integrate(context.Background(), decay{k: 1}, []float64{1, 2}, linspace(0, 1, 3), DefaultSettings())
	assert.Error(t, err)

	_, err = in.Integrate(context.Background(), decay{k: 1}, []float64{1}, []float64{0, 2, 1}, DefaultSettings())
	assert.Error(t, err)

	_, err = in.Integrate(context.Background(), decay{k: 1}, []float64{1}, nil, DefaultSettings())
	assert.Error(t, err)
}

func TestIntegrators_MaxStepHonored(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxStep = 0.1
	traj, err := DormandPrince{}.Integrate(context.Background(), decay{k: 0.01}, []float64{1}, linspace(0, 10, 3), settings)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, traj.Steps, 100)
}

func TestNew(t *testing.T) {
	in, err := New("rk45")
	require.NoError(t, err)
	assert.Equal(t, MethodRK45, in.Name())

	in, err = New("")
	require.NoError(t, err)
	assert.Equal(t, MethodRosenbrock23, in.Name())

	_, err = New("bdf")
	assert.Error(t, err)
}

func TestHermiteEndpoints(t *testing.T) {
	y0, f0 := []float64{1}, []float64{2}
	y1, f1 := []float64{3}, []float64{0}
	assert.Equal(t, y0, hermite(0, 1, y0, f0, y1, f1, 0))
	assert.InDelta(t, 3.0, hermite(0, 1, y0, f0, y1, f1, 1)[0], 1e-12)
}
