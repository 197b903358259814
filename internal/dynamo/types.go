package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MaxAbs returns the largest absolute component.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		if a := math.Abs(v); a > m || math.IsNaN(a) {
			m = a
		}
	}
	return m
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Positions returns the first half of a [x..., v...] state.
func (s State) Positions() []float64 { return s[:len(s)/2] }

// Velocities returns the second half of a [x..., v...] state.
func (s State) Velocities() []float64 { return s[len(s)/2:] }

// NewState packs positions and velocities into the [x..., v...] layout.
func NewState(positions, velocities []float64) (State, error) {
	if len(positions) != len(velocities) {
		return nil, fmt.Errorf("%d positions, %d velocities: %w", len(positions), len(velocities), ErrShapeMismatch)
	}
	s := make(State, 0, 2*len(positions))
	s = append(s, positions...)
	return append(s, velocities...), nil
}

type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

// Solver method names.
const (
	MethodAuto     = "auto"
	MethodAnalytic = "analytic"
	MethodNumeric  = "numeric"
)

type Config struct {
	Method          string
	Integrator      string
	StepFraction    float64
	MaxStep         float64
	ImagTolerance   float64
	CondLimit       float64
	DivergenceLimit float64
}

func DefaultConfig() Config {
	return Config{
		Method:          MethodAuto,
		Integrator:      "rk4",
		StepFraction:    0.1,
		MaxStep:         0.01,
		ImagTolerance:   1e-8,
		CondLimit:       1e6,
		DivergenceLimit: 1e12,
	}
}

// Validate checks the numeric options.
func (c Config) Validate() error {
	switch c.Method {
	case MethodAuto, MethodAnalytic, MethodNumeric:
	default:
		return fmt.Errorf("unknown method %q: %w", c.Method, ErrInvalidParameter)
	}
	if c.StepFraction <= 0 || c.StepFraction > 1 {
		return fmt.Errorf("step fraction must be in (0, 1], got %g: %w", c.StepFraction, ErrInvalidParameter)
	}
	if c.MaxStep <= 0 {
		return fmt.Errorf("max step must be positive, got %g: %w", c.MaxStep, ErrInvalidParameter)
	}
	if c.ImagTolerance <= 0 || c.CondLimit <= 0 || c.DivergenceLimit <= 0 {
		return fmt.Errorf("tolerances must be positive: %w", ErrInvalidParameter)
	}
	return nil
}

// Result is a trajectory table: one row per requested time.
type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	Method     string
	StepsTaken int
	// FinalEnergyDrift is |E(last) - E(first)| / |E(first)|, 0 when the
	// network starts at rest. The energy_drift metric is the maximum instead.
	FinalEnergyDrift float64
}

// Columns returns the table header: time, x.1..x.N, v.1..v.N.
func (r *Result) Columns() []string {
	if len(r.States) == 0 {
		return []string{"time"}
	}
	return ColumnNames(len(r.States[0]) / 2)
}

// ColumnNames returns the header for an n-oscillator trajectory table.
func ColumnNames(n int) []string {
	cols := make([]string, 0, 2*n+1)
	cols = append(cols, "time")
	for i := 1; i <= n; i++ {
		cols = append(cols, fmt.Sprintf("x.%d", i))
	}
	for i := 1; i <= n; i++ {
		cols = append(cols, fmt.Sprintf("v.%d", i))
	}
	return cols
}

// Row returns row i as [t, state...].
func (r *Result) Row(i int) []float64 {
	row := make([]float64, 0, len(r.States[i])+1)
	row = append(row, r.Times[i])
	return append(row, r.States[i]...)
}
