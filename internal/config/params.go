package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/san-kum/oscnet/internal/events"
)

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Masses = append([]float64(nil), c.Masses...)
	out.Damping = cloneRows(c.Damping)
	out.Stiffness = cloneRows(c.Stiffness)
	out.RestLengths = cloneRows(c.RestLengths)
	out.InitState.Positions = append([]float64(nil), c.InitState.Positions...)
	out.InitState.Velocities = append([]float64(nil), c.InitState.Velocities...)
	out.Times = append([]float64(nil), c.Times...)
	out.Events = append([]events.Row(nil), c.Events...)
	return &out
}

func cloneRows(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// SetParam assigns one network coefficient by name:
//
//	m.<i>      mass of oscillator i
//	k.<i>.<j>  stiffness between i and j (k.<i>.<i> is the ground spring)
//	d.<i>.<j>  damping between i and j
//
// Indices are 1-based. Coupling coefficients are written to both (i,j) and
// (j,i) so the matrices stay symmetric.
func (c *Config) SetParam(name string, value float64) error {
	parts := strings.Split(name, ".")
	idx := make([]int, len(parts)-1)
	for p := range idx {
		i, err := strconv.Atoi(parts[p+1])
		if err != nil || i < 1 || i > len(c.Masses) {
			return fmt.Errorf("parameter %q: index %q out of range 1..%d: %w", name, parts[p+1], len(c.Masses), dynamo.ErrInvalidParameter)
		}
		idx[p] = i - 1
	}

	switch {
	case parts[0] == "m" && len(idx) == 1:
		c.Masses[idx[0]] = value
	case parts[0] == "k" && len(idx) == 2:
		return setSymmetric(c.Stiffness, idx[0], idx[1], value, name)
	case parts[0] == "d" && len(idx) == 2:
		return setSymmetric(c.Damping, idx[0], idx[1], value, name)
	default:
		return fmt.Errorf("unknown parameter %q (want m.<i>, k.<i>.<j> or d.<i>.<j>): %w", name, dynamo.ErrInvalidParameter)
	}
	return nil
}

func setSymmetric(m [][]float64, i, j int, value float64, name string) error {
	if i >= len(m) || j >= len(m[i]) || i >= len(m[j]) {
		return fmt.Errorf("parameter %q outside the %d-row matrix: %w", name, len(m), dynamo.ErrShapeMismatch)
	}
	m[i][j] = value
	m[j][i] = value
	return nil
}
