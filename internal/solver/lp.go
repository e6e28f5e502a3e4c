package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// LPStatus is the outcome of a linear-program solve.
type LPStatus string

const (
	LPOptimal    LPStatus = "optimal"
	LPInfeasible LPStatus = "infeasible"
	LPUnbounded  LPStatus = "unbounded"
	LPError      LPStatus = "error"
)

// LinearProgram describes
//
//	minimize    C·x
//	subject to  Aeq·x = Beq
//	            Lower ≤ x ≤ Upper
//
// Aeq may be nil when there are no equality rows. Bounds must be finite.
type LinearProgram struct {
	C     []float64
	Aeq   *mat.Dense
	Beq   []float64
	Lower []float64
	Upper []float64
}

// LPSolution is the result of a solve. X and Duals are nil unless Status is
// LPOptimal. Duals holds one marginal per Aeq row (d objective / d Beq_i);
// it is nil when the dual problem could not be solved.
type LPSolution struct {
	Status    LPStatus
	Objective float64
	X         []float64
	Duals     []float64
	Message   string
}

// LinearProgramSolver solves bounded linear programs.
// A returned error means the problem itself was malformed.
type LinearProgramSolver interface {
	Solve(ctx context.Context, prob LinearProgram) (LPSolution, error)
}

// SimplexSolver solves LinearPrograms with gonum's Simplex implementation.
//
// The problem is shifted to x = Lower + z, z ≥ 0, with one slack per variable
// carrying the upper bound. Linearly dependent equality rows are removed
// first because Simplex requires full row rank. Duals are recovered from the
// optimal basis; the dual program is solved explicitly only when that basis
// does not yield a dual-feasible point.
type SimplexSolver struct {
	// Tol is the reduced-cost tolerance passed to Simplex. Zero uses 1e-10.
	Tol float64
	// RankTol is the pivot tolerance used when removing dependent rows. Zero uses 1e-9.
	RankTol float64
	// SkipDuals disables dual recovery.
	SkipDuals bool
}

// NewSimplexSolver returns a SimplexSolver with default tolerances.
func NewSimplexSolver() *SimplexSolver {
	return &SimplexSolver{}
}

func (s *SimplexSolver) tol() float64 {
	if s.Tol > 0 {
		return s.Tol
	}
	return 1e-10
}

func (s *SimplexSolver) rankTol() float64 {
	if s.RankTol > 0 {
		return s.RankTol
	}
	return 1e-9
}

func (prob LinearProgram) validate() error {
	n := len(prob.C)
	if n == 0 {
		return errors.New("linear program has no variables")
	}
	if len(prob.Lower) != n || len(prob.Upper) != n {
		return fmt.Errorf("bounds length mismatch: %d variables, %d lower, %d upper", n, len(prob.Lower), len(prob.Upper))
	}
	if prob.Aeq != nil {
		r, c := prob.Aeq.Dims()
		if c != n {
			return fmt.Errorf("Aeq has %d columns, want %d", c, n)
		}
		if len(prob.Beq) != r {
			return fmt.Errorf("Beq has %d entries, want %d", len(prob.Beq), r)
		}
	}
	for j := 0; j < n; j++ {
		if math.IsNaN(prob.C[j]) || math.IsInf(prob.C[j], 0) {
			return fmt.Errorf("objective coefficient %d is not finite", j)
		}
		if math.IsInf(prob.Lower[j], 0) || math.IsInf(prob.Upper[j], 0) ||
			math.IsNaN(prob.Lower[j]) || math.IsNaN(prob.Upper[j]) {
			return fmt.Errorf("bounds for variable %d are not finite", j)
		}
	}
	return nil
}

// Solve implements LinearProgramSolver.
func (s *SimplexSolver) Solve(ctx context.Context, prob LinearProgram) (sol LPSolution, err error) {
	if err := prob.validate(); err != nil {
		return LPSolution{Status: LPError, Message: err.Error()}, err
	}
	if err := ctx.Err(); err != nil {
		return LPSolution{Status: LPError, Message: err.Error()}, nil
	}

	n := len(prob.C)
	for j := 0; j < n; j++ {
		if prob.Lower[j] > prob.Upper[j] {
			return LPSolution{
				Status:  LPInfeasible,
				Message: fmt.Sprintf("variable %d has lower bound %g above upper bound %g", j, prob.Lower[j], prob.Upper[j]),
			}, nil
		}
	}

	// Simplex panics on dimension problems; surface them as an error status.
	defer func() {
		if r := recover(); r != nil {
			sol = LPSolution{Status: LPError, Message: fmt.Sprintf("simplex panicked: %v", r)}
		}
	}()

	// Shifted equality rows: Aeq·z = Beq - Aeq·Lower.
	var rows [][]float64
	var rhs []float64
	if prob.Aeq != nil {
		r, _ := prob.Aeq.Dims()
		for i := 0; i < r; i++ {
			row := mat.Row(nil, i, prob.Aeq)
			b := prob.Beq[i]
			for j, a := range row {
				b -= a * prob.Lower[j]
			}
			rows = append(rows, row)
			rhs = append(rhs, b)
		}
	}

	keep, inconsistent := independentRows(rows, rhs, s.rankTol())
	if inconsistent >= 0 {
		return LPSolution{
			Status:  LPInfeasible,
			Message: fmt.Sprintf("equality row %d is inconsistent with the others", inconsistent),
		}, nil
	}

	// Standard form over [z, slack]:
	//   [A_keep 0] [z]   [b_keep      ]
	//   [I      I] [s] = [Upper-Lower ]
	m := len(keep) + n
	a := mat.NewDense(m, 2*n, nil)
	b := make([]float64, m)
	flipped := make([]bool, m)
	for k, i := range keep {
		for j, v := range rows[i] {
			a.Set(k, j, v)
		}
		b[k] = rhs[i]
	}
	for j := 0; j < n; j++ {
		a.Set(len(keep)+j, j, 1)
		a.Set(len(keep)+j, n+j, 1)
		b[len(keep)+j] = prob.Upper[j] - prob.Lower[j]
	}
	for i := 0; i < m; i++ {
		if b[i] < 0 {
			flipped[i] = true
			b[i] = -b[i]
			for j := 0; j < 2*n; j++ {
				a.Set(i, j, -a.At(i, j))
			}
		}
	}
	c := make([]float64, 2*n)
	copy(c, prob.C)

	if err := ctx.Err(); err != nil {
		return LPSolution{Status: LPError, Message: err.Error()}, nil
	}
	_, z, err := lp.Simplex(c, a, b, s.tol(), nil)
	if err != nil {
		return LPSolution{Status: statusForError(err), Message: err.Error()}, nil
	}

	x := make([]float64, n)
	obj := 0.0
	for j := 0; j < n; j++ {
		x[j] = prob.Lower[j] + z[j]
		obj += prob.C[j] * x[j]
	}

	sol = LPSolution{Status: LPOptimal, Objective: obj, X: x, Message: "optimal"}

	if s.SkipDuals || prob.Aeq == nil {
		return sol, nil
	}
	if err := ctx.Err(); err != nil {
		return LPSolution{Status: LPError, Message: err.Error()}, nil
	}
	y, ok := s.basisDuals(c, a, z)
	if !ok {
		var derr error
		if y, derr = s.solveDual(c, a, b); derr != nil {
			sol.Message = "optimal; duals unavailable: " + derr.Error()
			return sol, nil
		}
	}
	r, _ := prob.Aeq.Dims()
	duals := make([]float64, r)
	for k, i := range keep {
		v := y[k]
		if flipped[k] {
			v = -v
		}
		duals[i] = v
	}
	sol.Duals = duals
	return sol, nil
}

// basisDuals recovers the duals from the optimal basis by solving Bᵀy = c_B.
// Columns with positive z are basic; the basis is completed with slack
// columns, then structural ones, until B is square. ok is false when B is
// singular or y is not dual feasible, which can happen at a degenerate vertex.
func (s *SimplexSolver) basisDuals(c []float64, a *mat.Dense, z []float64) (y []float64, ok bool) {
	m, cols := a.Dims()
	order := make([]int, 0, cols)
	for j := 0; j < cols; j++ {
		if z[j] > 0 {
			order = append(order, j)
		}
	}
	// Slacks sit at the high indices.
	for j := cols - 1; j >= 0; j-- {
		if z[j] <= 0 {
			order = append(order, j)
		}
	}

	candidates := make([][]float64, len(order))
	for k, j := range order {
		candidates[k] = mat.Col(nil, j, a)
	}
	picked, _ := independentRows(candidates, make([]float64, len(order)), s.rankTol())
	if len(picked) != m {
		return nil, false
	}

	basis := mat.NewDense(m, m, nil)
	cB := mat.NewVecDense(m, nil)
	for k, p := range picked {
		basis.SetCol(k, candidates[p])
		cB.SetVec(k, c[order[p]])
	}
	var lu mat.LU
	lu.Factorize(basis)
	var yv mat.VecDense
	if err := lu.SolveVecTo(&yv, true, cB); err != nil {
		return nil, false
	}

	// Reduced costs c - Aᵀy must be non-negative.
	var aty mat.VecDense
	aty.MulVec(a.T(), &yv)
	scale := 1.0
	for _, v := range c {
		scale = math.Max(scale, math.Abs(v))
	}
	for j := 0; j < cols; j++ {
		if c[j]-aty.AtVec(j) < -1e-7*scale {
			return nil, false
		}
	}
	return mat.Col(nil, 0, &yv), true
}

// solveDual solves max bᵀy s.t. Aᵀy ≤ c with y free, returning y.
func (s *SimplexSolver) solveDual(c []float64, a *mat.Dense, b []float64) ([]float64, error) {
	m, _ := a.Dims()
	negB := make([]float64, m)
	for i, v := range b {
		negB[i] = -v
	}
	cStd, aStd, bStd := lp.Convert(negB, a.T(), c, nil, nil)
	_, w, err := lp.Simplex(cStd, aStd, bStd, s.tol(), nil)
	if err != nil {
		return nil, err
	}
	// Convert orders variables as [y+, y-, slack].
	y := make([]float64, m)
	for i := 0; i < m; i++ {
		y[i] = w[i] - w[m+i]
	}
	return y, nil
}

func statusForError(err error) LPStatus {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return LPInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return LPUnbounded
	default:
		return LPError
	}
}

// independentRows selects a maximal linearly independent subset of rows by
// sequential Gaussian elimination on the augmented rows [row | rhs]. It
// returns the kept row indices and, when a dependent row has a rhs that
// contradicts the others, that row's index (otherwise -1).
func independentRows(rows [][]float64, rhs []float64, tol float64) (keep []int, inconsistent int) {
	type pivotRow struct {
		v   []float64 // augmented: last entry is rhs
		col int
	}
	var pivots []pivotRow

	for i, row := range rows {
		n := len(row)
		v := make([]float64, n+1)
		copy(v, row)
		v[n] = rhs[i]

		scale := 0.0
		for _, x := range v {
			scale = math.Max(scale, math.Abs(x))
		}
		if scale == 0 {
			continue
		}

		for _, p := range pivots {
			f := v[p.col] / p.v[p.col]
			if f == 0 {
				continue
			}
			for j := range v {
				v[j] -= f * p.v[j]
			}
		}

		best, col := 0.0, -1
		for j := 0; j < n; j++ {
			if a := math.Abs(v[j]); a > best {
				best, col = a, j
			}
		}
		if best <= tol*scale {
			if math.Abs(v[n]) > tol*math.Max(1, scale) {
				return keep, i
			}
			continue
		}
		pivots = append(pivots, pivotRow{v: v, col: col})
		keep = append(keep, i)
	}
	return keep, -1
}
