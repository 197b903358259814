package network

import (
	"fmt"
	"math"

	"github.com/san-kum/oscnet/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	symmetryTolerance = 1e-9
	equilibriumCond   = 1e12
)

// Params are the physical parameters of a network.
// RestLengths may be nil, meaning all springs rest at zero length.
type Params struct {
	Masses      []float64
	Damping     [][]float64
	Stiffness   [][]float64
	RestLengths [][]float64
}

// Update carries replacement parameters; nil fields keep the current value.
type Update struct {
	Masses      []float64
	Damping     [][]float64
	Stiffness   [][]float64
	RestLengths [][]float64
}

type Model struct {
	n         int
	masses    []float64
	damping   *mat.Dense
	stiffness *mat.Dense
	rest      *mat.Dense

	a       *mat.Dense
	forcing []float64
}

// New validates p and derives the system matrix.
func New(p Params) (*Model, error) {
	n := len(p.Masses)
	if n == 0 {
		return nil, fmt.Errorf("network needs at least one oscillator: %w", dynamo.ErrShapeMismatch)
	}
	for i, m := range p.Masses {
		if !(m > 0) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("mass %d must be positive and finite, got %g: %w", i+1, m, dynamo.ErrInvalidParameter)
		}
	}

	damping, err := squareMatrix("damping", p.Damping, n)
	if err != nil {
		return nil, err
	}
	stiffness, err := squareMatrix("stiffness", p.Stiffness, n)
	if err != nil {
		return nil, err
	}
	rest := mat.NewDense(n, n, nil)
	if p.RestLengths != nil {
		if rest, err = squareMatrix("rest lengths", p.RestLengths, n); err != nil {
			return nil, err
		}
		if err := checkSymmetric("rest lengths", rest); err != nil {
			return nil, err
		}
	}
	for _, c := range []struct {
		name string
		m    *mat.Dense
	}{{"damping", damping}, {"stiffness", stiffness}} {
		if err := checkSymmetric(c.name, c.m); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if c.m.At(i, i) < 0 {
				return nil, fmt.Errorf("%s diagonal (%d,%d) is negative: %w", c.name, i+1, i+1, dynamo.ErrInvalidParameter)
			}
		}
	}

	m := &Model{
		n:         n,
		masses:    append([]float64(nil), p.Masses...),
		damping:   damping,
		stiffness: stiffness,
		rest:      rest,
	}
	m.derive()
	return m, nil
}

// derive builds A = [[0, I], [-M⁻¹K_eff, -M⁻¹D_eff]] and the forcing vector b.
func (m *Model) derive() {
	n := m.n
	keff := effective(m.stiffness)
	deff := effective(m.damping)

	a := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, n+i, 1)
		for j := 0; j < n; j++ {
			a.Set(n+i, j, -keff.At(i, j)/m.masses[i])
			a.Set(n+i, n+j, -deff.At(i, j)/m.masses[i])
		}
	}

	b := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		f := m.stiffness.At(i, i) * m.rest.At(i, i)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			f -= m.stiffness.At(i, j) * restOffset(m.rest, i, j)
		}
		b[n+i] = f / m.masses[i]
	}

	m.a = a
	m.forcing = b
}

// restOffset is the rest value of x_j - x_i.
func restOffset(rest mat.Matrix, i, j int) float64 {
	if i < j {
		return rest.At(i, j)
	}
	return -rest.At(j, i)
}

// effective turns a connection matrix into the matrix acting on positions:
// the diagonal collects ground plus all couplings, off-diagonals are negated.
func effective(c *mat.Dense) *mat.Dense {
	n, _ := c.Dims()
	e := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		sum := c.At(i, i)
		for j := 0; j < n; j++ {
			if j != i {
				sum += c.At(i, j)
				e.Set(i, j, -c.At(i, j))
			}
		}
		e.Set(i, i, sum)
	}
	return e
}

func (m *Model) N() int        { return m.n }
func (m *Model) StateDim() int { return 2 * m.n }

// SystemMatrix returns A. The matrix is shared and must not be modified.
func (m *Model) SystemMatrix() mat.Matrix { return m.a }

// Forcing returns b in dX/dt = A·X + b. It is zero when all rest lengths are zero.
func (m *Model) Forcing() []float64 { return append([]float64(nil), m.forcing...) }

func (m *Model) Masses() []float64 { return append([]float64(nil), m.masses...) }

func (m *Model) Damping() *mat.Dense     { return mat.DenseCopyOf(m.damping) }
func (m *Model) Stiffness() *mat.Dense   { return mat.DenseCopyOf(m.stiffness) }
func (m *Model) RestLengths() *mat.Dense { return mat.DenseCopyOf(m.rest) }

// EffectiveStiffness returns the stiffness matrix acting on positions.
func (m *Model) EffectiveStiffness() *mat.Dense { return effective(m.stiffness) }

// Forced reports whether any rest length produces a constant force.
func (m *Model) Forced() bool {
	for _, v := range m.forcing {
		if v != 0 {
			return true
		}
	}
	return false
}

// Update returns a new model with the given parameters replaced.
// The receiver is left untouched.
func (m *Model) Update(u Update) (*Model, error) {
	p := Params{
		Masses:      m.Masses(),
		Damping:     rows(m.damping),
		Stiffness:   rows(m.stiffness),
		RestLengths: rows(m.rest),
	}
	if u.Masses != nil {
		p.Masses = u.Masses
	}
	if u.Damping != nil {
		p.Damping = u.Damping
	}
	if u.Stiffness != nil {
		p.Stiffness = u.Stiffness
	}
	if u.RestLengths != nil {
		p.RestLengths = u.RestLengths
	}
	return New(p)
}

// Derive implements dynamo.System: dX/dt = A·X + b.
func (m *Model) Derive(x dynamo.State, _ float64) dynamo.State {
	dx := make(dynamo.State, len(x))
	mat.NewVecDense(len(dx), dx).MulVec(m.a, mat.NewVecDense(len(x), x))
	for i, b := range m.forcing {
		dx[i] += b
	}
	return dx
}

// Energy implements dynamo.Hamiltonian: kinetic energy plus spring potential.
func (m *Model) Energy(x dynamo.State) float64 {
	n := m.n
	e := 0.0
	for i := 0; i < n; i++ {
		v := x[n+i]
		e += 0.5 * m.masses[i] * v * v

		g := x[i] - m.rest.At(i, i)
		e += 0.5 * m.stiffness.At(i, i) * g * g
		for j := i + 1; j < n; j++ {
			s := x[j] - x[i] - m.rest.At(i, j)
			e += 0.5 * m.stiffness.At(i, j) * s * s
		}
	}
	return e
}

// Equilibrium returns the static rest state of the unforced dynamics.
// ok is false when the rest lengths produce a force the springs cannot balance
// (singular effective stiffness).
func (m *Model) Equilibrium() (eq dynamo.State, ok bool) {
	n := m.n
	eq = make(dynamo.State, 2*n)
	if !m.Forced() {
		return eq, true
	}

	var lu mat.LU
	lu.Factorize(effective(m.stiffness))
	if lu.Cond() > equilibriumCond {
		return nil, false
	}
	f := make([]float64, n)
	for i := 0; i < n; i++ {
		f[i] = m.forcing[n+i] * m.masses[i]
	}
	pos := mat.NewVecDense(n, eq[:n])
	if err := lu.SolveVecTo(pos, false, mat.NewVecDense(n, f)); err != nil {
		return nil, false
	}
	return eq, true
}

func squareMatrix(name string, data [][]float64, n int) (*mat.Dense, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%s has %d rows, want %d: %w", name, len(data), n, dynamo.ErrShapeMismatch)
	}
	d := mat.NewDense(n, n, nil)
	for i, row := range data {
		if len(row) != n {
			return nil, fmt.Errorf("%s row %d has %d columns, want %d: %w", name, i+1, len(row), n, dynamo.ErrShapeMismatch)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%s (%d,%d) is not finite: %w", name, i+1, j+1, dynamo.ErrInvalidParameter)
			}
			d.Set(i, j, v)
		}
	}
	return d, nil
}

func checkSymmetric(name string, d *mat.Dense) error {
	n, _ := d.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := d.At(i, j), d.At(j, i)
			if math.Abs(a-b) > symmetryTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
				return fmt.Errorf("%s is not symmetric at (%d,%d): %w", name, i+1, j+1, dynamo.ErrInvalidParameter)
			}
		}
	}
	return nil
}

func rows(d *mat.Dense) [][]float64 {
	r, c := d.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, d)
	}
	return out
}
