package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/oscnet/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	solveCond   = 1e12
	loadBalance = 1e-9
)

// GroundMode selects how ground-spring rest lengths are inferred.
type GroundMode int

const (
	// Individual solves every ground rest length on its own.
	Individual GroundMode = iota
	// Uniform shares one ground rest length among coupled oscillators.
	Uniform
)

func (m GroundMode) String() string {
	switch m {
	case Individual:
		return "individual"
	case Uniform:
		return "uniform"
	}
	return fmt.Sprintf("GroundMode(%d)", int(m))
}

func ParseGroundMode(s string) (GroundMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "individual", "":
		return Individual, nil
	case "uniform":
		return Uniform, nil
	}
	return 0, fmt.Errorf("unknown ground mode %q: %w", s, dynamo.ErrInvalidParameter)
}

// EstimateDistances returns rest lengths, laid out like k, for which positions
// is a static equilibrium under the optional per-oscillator loads.
// Entries without a spring are zero. The rest length of a coupling (i, j) is
// the rest value of x_j - x_i for i < j and is stored in both (i, j) and (j, i).
func EstimateDistances(k mat.Matrix, positions []float64, mode GroundMode, loads []float64) (*mat.Dense, error) {
	n, c := k.Dims()
	if n != c {
		return nil, fmt.Errorf("stiffness is %dx%d: %w", n, c, dynamo.ErrShapeMismatch)
	}
	if len(positions) != n {
		return nil, fmt.Errorf("equilibrium has %d positions, network has %d: %w", len(positions), n, dynamo.ErrShapeMismatch)
	}
	if loads != nil && len(loads) != n {
		return nil, fmt.Errorf("%d loads for %d oscillators: %w", len(loads), n, dynamo.ErrShapeMismatch)
	}
	p := make([]float64, n)
	copy(p, loads)

	rest := mat.NewDense(n, n, nil)
	for _, comp := range components(k) {
		var (
			shift []float64
			err   error
		)
		switch mode {
		case Individual:
			shift, err = relaxedShift(k, comp, p)
			if err != nil {
				return nil, err
			}
			for a, i := range comp {
				if k.At(i, i) != 0 {
					rest.Set(i, i, positions[i]-shift[a])
				}
			}
		case Uniform:
			var l0 float64
			l0, shift, err = uniformShift(k, comp, positions, p)
			if err != nil {
				return nil, err
			}
			for _, i := range comp {
				if k.At(i, i) != 0 {
					rest.Set(i, i, l0)
				}
			}
		default:
			return nil, fmt.Errorf("unknown ground mode %v: %w", mode, dynamo.ErrInvalidParameter)
		}

		for a, i := range comp {
			for b, j := range comp {
				if i >= j || k.At(i, j) == 0 {
					continue
				}
				r := (positions[j] - positions[i]) - (shift[b] - shift[a])
				rest.Set(i, j, r)
				rest.Set(j, i, r)
			}
		}
	}
	return rest, nil
}

// relaxedShift solves K_eff·u = p over one component: u is how far the loads
// push each oscillator away from where all its springs are relaxed.
func relaxedShift(k mat.Matrix, comp []int, p []float64) ([]float64, error) {
	sub := mat.NewDense(len(comp), len(comp), nil)
	rhs := make([]float64, len(comp))
	grounded := false
	for a, i := range comp {
		rhs[a] = p[i]
		if k.At(i, i) != 0 {
			grounded = true
		}
		sum := k.At(i, i)
		for b, j := range comp {
			if i != j {
				sum += k.At(i, j)
				sub.Set(a, b, -k.At(i, j))
			}
		}
		sub.Set(a, a, sum)
	}
	if grounded {
		return solve(sub, rhs, false, comp)
	}
	if err := balanced(rhs, comp); err != nil {
		return nil, err
	}
	return solve(sub, rhs, true, comp)
}

// uniformShift picks the shared ground rest length l0 that balances the
// component as a whole, then spreads what each ground spring leaves
// unbalanced over the couplings through the weighted Laplacian.
func uniformShift(k mat.Matrix, comp []int, x, p []float64) (float64, []float64, error) {
	var ground, moment, load float64
	for _, i := range comp {
		ground += k.At(i, i)
		moment += k.At(i, i) * x[i]
		load += p[i]
	}

	l0 := 0.0
	if ground == 0 {
		rhs := make([]float64, len(comp))
		for a, i := range comp {
			rhs[a] = p[i]
		}
		if err := balanced(rhs, comp); err != nil {
			return 0, nil, err
		}
	} else {
		l0 = (moment - load) / ground
	}

	lap := mat.NewDense(len(comp), len(comp), nil)
	rhs := make([]float64, len(comp))
	for a, i := range comp {
		rhs[a] = k.At(i, i)*(l0-x[i]) + p[i]
		sum := 0.0
		for b, j := range comp {
			if i != j {
				sum += k.At(i, j)
				lap.Set(a, b, -k.At(i, j))
			}
		}
		lap.Set(a, a, sum)
	}
	w, err := solve(lap, rhs, true, comp)
	return l0, w, err
}

func balanced(rhs []float64, comp []int) error {
	var net, scale float64
	for _, v := range rhs {
		net += v
		scale += math.Abs(v)
	}
	if math.Abs(net) > loadBalance*math.Max(1, scale) {
		return fmt.Errorf("oscillators %v have no ground spring but carry net load %g: %w",
			oneBased(comp), net, dynamo.ErrUnderdeterminedSystem)
	}
	return nil
}

// solve returns the solution of a·u = rhs. With pin set, u[0] is fixed at 0
// and the first equation dropped, which removes the free translation of a
// component held together only by couplings.
func solve(a *mat.Dense, rhs []float64, pin bool, comp []int) ([]float64, error) {
	m := len(rhs)
	u := make([]float64, m)
	off := 0
	if pin {
		off = 1
	}
	if m-off == 0 {
		return u, nil
	}

	sub := a.Slice(off, m, off, m)
	var lu mat.LU
	lu.Factorize(sub)
	if lu.Cond() > solveCond {
		return nil, fmt.Errorf("force balance of oscillators %v is singular: %w", oneBased(comp), dynamo.ErrUnderdeterminedSystem)
	}
	dst := mat.NewVecDense(m-off, u[off:])
	if err := lu.SolveVecTo(dst, false, mat.NewVecDense(m-off, append([]float64(nil), rhs[off:]...))); err != nil {
		return nil, fmt.Errorf("force balance of oscillators %v: %v: %w", oneBased(comp), err, dynamo.ErrUnderdeterminedSystem)
	}
	return u, nil
}

// components groups oscillators linked through non-zero couplings.
func components(k mat.Matrix) [][]int {
	n, _ := k.Dims()
	seen := make([]bool, n)
	var out [][]int
	for s := 0; s < n; s++ {
		if seen[s] {
			continue
		}
		seen[s] = true
		comp := []int{s}
		for q := 0; q < len(comp); q++ {
			i := comp[q]
			for j := 0; j < n; j++ {
				if !seen[j] && j != i && (k.At(i, j) != 0 || k.At(j, i) != 0) {
					seen[j] = true
					comp = append(comp, j)
				}
			}
		}
		out = append(out, comp)
	}
	return out
}

func oneBased(idx []int) []int {
	out := make([]int, len(idx))
	for i, v := range idx {
		out[i] = v + 1
	}
	return out
}
