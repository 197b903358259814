package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/san-kum/oscnet/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// realTolerance decides when an eigenvalue is real. It is loose enough to
// absorb the O(sqrt(eps)) splitting of a critically damped double root.
const realTolerance = 1e-6

// Mode is one natural mode of a network.
type Mode struct {
	// Frequency is the undamped natural frequency ω/2π. Overdamped and
	// critically damped modes report 0.
	Frequency float64
	// DampedFrequency is the observed oscillation frequency Im(λ)/2π.
	DampedFrequency float64
	DampingRatio    float64
	Eigenvalue      complex128
}

// Resonances extracts one mode per oscillator from the system matrix a,
// ordered by ascending frequency.
func Resonances(a mat.Matrix) ([]Mode, error) {
	r, c := a.Dims()
	if r != c || r%2 != 0 {
		return nil, fmt.Errorf("system matrix is %dx%d: %w", r, c, dynamo.ErrShapeMismatch)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenRight); !ok {
		return nil, fmt.Errorf("eigenvalues did not converge: %w", dynamo.ErrNumericalInstability)
	}
	vectors := mat.NewCDense(r, r, nil)
	eig.VectorsTo(vectors)

	var (
		modes []Mode
		reals []realRoot
	)
	for k, l := range eig.Values(nil) {
		if math.Abs(imag(l)) <= realTolerance*math.Max(1, cmplx.Abs(l)) {
			reals = append(reals, realRoot{value: real(l), shape: positionShape(vectors, k, r/2)})
			continue
		}
		if imag(l) < 0 {
			continue
		}
		w := cmplx.Abs(l)
		modes = append(modes, Mode{
			Frequency:       w / (2 * math.Pi),
			DampedFrequency: imag(l) / (2 * math.Pi),
			DampingRatio:    -real(l) / w,
			Eigenvalue:      l,
		})
	}

	// Real roots of one overdamped mode satisfy r1·r2 = ω² and r1+r2 = -2ζω.
	for _, p := range pairRoots(reals) {
		ra, rb := p[0], p[1]
		modes = append(modes, Mode{
			DampingRatio: overdampedRatio(ra, rb),
			Eigenvalue:   complex(min(ra, rb), 0),
		})
	}

	sort.SliceStable(modes, func(i, j int) bool {
		if modes[i].Frequency != modes[j].Frequency {
			return modes[i].Frequency < modes[j].Frequency
		}
		return modes[i].DampingRatio < modes[j].DampingRatio
	})
	return modes, nil
}

func overdampedRatio(ra, rb float64) float64 {
	w := math.Sqrt(math.Max(0, ra*rb))
	sum := -(ra + rb)
	if w == 0 {
		if sum == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return sum / (2 * w)
}

type realRoot struct {
	value float64
	shape []float64
}

// positionShape returns the unit position half of eigenvector k, or nil when
// it vanishes.
func positionShape(v *mat.CDense, k, n int) []float64 {
	shape := make([]float64, n)
	norm := 0.0
	for i := range shape {
		shape[i] = real(v.At(i, k))
		norm += shape[i] * shape[i]
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range shape {
		shape[i] /= norm
	}
	return shape
}

// pairRoots matches the two real roots of each overdamped mode. Both roots
// of a mode share the position shape φ (eigenvectors [φ, r·φ]), so pairs are
// chosen greedily by the largest |cos| between shapes, preferring distinct
// roots on ties. An unmatched root pairs with itself.
func pairRoots(roots []realRoot) [][2]float64 {
	type candidate struct {
		i, j  int
		score float64
		gap   float64
	}
	var cands []candidate
	for i := range roots {
		for j := i + 1; j < len(roots); j++ {
			cands = append(cands, candidate{
				i:     i,
				j:     j,
				score: math.Abs(dot(roots[i].shape, roots[j].shape)),
				gap:   math.Abs(roots[i].value - roots[j].value),
			})
		}
	}
	sort.SliceStable(cands, func(a, b int) bool {
		if math.Abs(cands[a].score-cands[b].score) > 1e-9 {
			return cands[a].score > cands[b].score
		}
		return cands[a].gap > cands[b].gap
	})

	used := make([]bool, len(roots))
	var pairs [][2]float64
	for _, c := range cands {
		if used[c.i] || used[c.j] {
			continue
		}
		used[c.i], used[c.j] = true, true
		pairs = append(pairs, [2]float64{roots[c.i].value, roots[c.j].value})
	}
	for i, r := range roots {
		if !used[i] {
			pairs = append(pairs, [2]float64{r.value, r.value})
		}
	}
	return pairs
}

func dot(a, b []float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
