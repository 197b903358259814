// Package analytic solves dX/dt = A·X in closed form through the
// eigen-decomposition of A.
package analytic

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/oscnet/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultImagTolerance = 1e-8
	DefaultCondLimit     = 1e6
)

type Solver struct {
	// ImagTolerance bounds the imaginary residual of a reconstructed state,
	// relative to its largest real component.
	ImagTolerance float64
	// CondLimit is the largest accepted condition number of the eigenvector
	// matrix; above it A is treated as non-diagonalizable.
	CondLimit float64
}

func NewSolver() *Solver {
	return &Solver{ImagTolerance: DefaultImagTolerance, CondLimit: DefaultCondLimit}
}

// Trajectory is x(t) = Σ_k c_k·v_k·exp(λ_k·t). It holds no mutable state.
type Trajectory struct {
	values  []complex128
	vectors *mat.CDense
	coeffs  []complex128
	tol     float64
}

// Solve diagonalizes a and expresses x0 in its eigenbasis.
func (s *Solver) Solve(a mat.Matrix, x0 dynamo.State) (*Trajectory, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("system matrix is %dx%d: %w", r, c, dynamo.ErrShapeMismatch)
	}
	if len(x0) != r {
		return nil, fmt.Errorf("state has %d entries, system has %d: %w", len(x0), r, dynamo.ErrShapeMismatch)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenRight); !ok {
		return nil, fmt.Errorf("eigen-decomposition failed: %w", dynamo.ErrNonDiagonalizable)
	}
	values := eig.Values(nil)
	vectors := &mat.CDense{}
	eig.VectorsTo(vectors)

	coeffs, err := s.coefficients(vectors, x0)
	if err != nil {
		return nil, err
	}

	return &Trajectory{
		values:  values,
		vectors: vectors,
		coeffs:  coeffs,
		tol:     s.ImagTolerance,
	}, nil
}

// coefficients solves V·c = x0 over the complex numbers by expanding it to the
// real system [[Re V, -Im V], [Im V, Re V]]·[Re c; Im c] = [x0; 0].
// The expansion has the same singular values as V, so its condition number
// measures how close V is to losing rank.
func (s *Solver) coefficients(v *mat.CDense, x0 dynamo.State) ([]complex128, error) {
	n := len(x0)
	big := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			z := v.At(i, j)
			if cmplx.IsNaN(z) || cmplx.IsInf(z) {
				return nil, fmt.Errorf("eigenvector %d is not finite: %w", j, dynamo.ErrNonDiagonalizable)
			}
			big.Set(i, j, real(z))
			big.Set(i, n+j, -imag(z))
			big.Set(n+i, j, imag(z))
			big.Set(n+i, n+j, real(z))
		}
	}

	var lu mat.LU
	lu.Factorize(big)
	if cond := lu.Cond(); cond > s.CondLimit || math.IsNaN(cond) {
		return nil, fmt.Errorf("eigenvector matrix condition %.3g exceeds %.3g: %w", cond, s.CondLimit, dynamo.ErrNonDiagonalizable)
	}

	rhs := make([]float64, 2*n)
	copy(rhs, x0)
	var sol mat.VecDense
	if err := lu.SolveVecTo(&sol, false, mat.NewVecDense(2*n, rhs)); err != nil {
		return nil, fmt.Errorf("eigenbasis projection: %v: %w", err, dynamo.ErrNonDiagonalizable)
	}

	coeffs := make([]complex128, n)
	for k := range coeffs {
		coeffs[k] = complex(sol.AtVec(k), sol.AtVec(n+k))
	}
	return coeffs, nil
}

// Dim returns the state dimension.
func (tr *Trajectory) Dim() int { return len(tr.coeffs) }

// Eigenvalues returns a copy of the eigenvalues of A.
func (tr *Trajectory) Eigenvalues() []complex128 {
	return append([]complex128(nil), tr.values...)
}

// At evaluates the trajectory at time t (relative to the initial state).
// The imaginary parts of conjugate modes cancel; a residual larger than the
// tolerance is reported as ErrNumericalInstability.
func (tr *Trajectory) At(t float64) (dynamo.State, error) {
	n := len(tr.coeffs)
	sum := make([]complex128, n)
	for k, c := range tr.coeffs {
		if c == 0 {
			continue
		}
		w := c * cmplx.Exp(tr.values[k]*complex(t, 0))
		for i := 0; i < n; i++ {
			sum[i] += w * tr.vectors.At(i, k)
		}
	}

	x := make(dynamo.State, n)
	scale, residual := 1.0, 0.0
	for i, z := range sum {
		x[i] = real(z)
		scale = math.Max(scale, math.Abs(real(z)))
		residual = math.Max(residual, math.Abs(imag(z)))
	}
	if residual > tr.tol*scale || !x.IsValid() {
		return nil, fmt.Errorf("imaginary residual %.3g at t=%g: %w", residual, t, dynamo.ErrNumericalInstability)
	}
	return x, nil
}

// Sample evaluates the trajectory at each of times, shifted by t0.
func (tr *Trajectory) Sample(t0 float64, times []float64) ([]dynamo.State, error) {
	out := make([]dynamo.State, len(times))
	for i, t := range times {
		x, err := tr.At(t - t0)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}
