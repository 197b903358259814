package events

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/oscnet/internal/dynamo"
)

type Kind int

const (
	Instantaneous Kind = iota
	Hold
	Linear
)

func (k Kind) String() string {
	switch k {
	case Instantaneous:
		return "dirac"
	case Hold:
		return "constant"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts both the descriptive and the short method names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dirac", "instantaneous":
		return Instantaneous, nil
	case "constant", "hold":
		return Hold, nil
	case "linear":
		return Linear, nil
	}
	return 0, fmt.Errorf("unknown event method %q: %w", s, dynamo.ErrInvalidParameter)
}

// Variable identifies one state variable by oscillator (1-based).
type Variable struct {
	Velocity   bool
	Oscillator int
}

func X(i int) Variable { return Variable{Oscillator: i} }
func V(i int) Variable { return Variable{Velocity: true, Oscillator: i} }

// ParseVariable parses "x.<i>" or "v.<i>".
func ParseVariable(s string) (Variable, error) {
	prefix, num, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Variable{}, fmt.Errorf("variable %q: want x.<i> or v.<i>: %w", s, dynamo.ErrInvalidParameter)
	}
	i, err := strconv.Atoi(num)
	if err != nil || i < 1 {
		return Variable{}, fmt.Errorf("variable %q: bad oscillator index: %w", s, dynamo.ErrInvalidParameter)
	}
	switch prefix {
	case "x":
		return X(i), nil
	case "v":
		return V(i), nil
	}
	return Variable{}, fmt.Errorf("variable %q: want x.<i> or v.<i>: %w", s, dynamo.ErrInvalidParameter)
}

func (v Variable) String() string {
	if v.Velocity {
		return fmt.Sprintf("v.%d", v.Oscillator)
	}
	return fmt.Sprintf("x.%d", v.Oscillator)
}

// Index returns the position of v in a [x_1..x_n, v_1..v_n] state.
func (v Variable) Index(n int) int {
	if v.Velocity {
		return n + v.Oscillator - 1
	}
	return v.Oscillator - 1
}

type Event struct {
	Var   Variable
	Time  float64
	Value float64
	Kind  Kind
}

func (e Event) validate() error {
	if e.Var.Oscillator < 1 {
		return fmt.Errorf("event on %s: %w", e.Var, dynamo.ErrInvalidParameter)
	}
	if math.IsNaN(e.Time) || math.IsInf(e.Time, 0) || e.Time < 0 {
		return fmt.Errorf("event on %s: time %g must be finite and non-negative: %w", e.Var, e.Time, dynamo.ErrInvalidParameter)
	}
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return fmt.Errorf("event on %s at t=%g: value must be finite: %w", e.Var, e.Time, dynamo.ErrInvalidParameter)
	}
	switch e.Kind {
	case Instantaneous, Hold, Linear:
	default:
		return fmt.Errorf("event on %s at t=%g: %v: %w", e.Var, e.Time, e.Kind, dynamo.ErrInvalidParameter)
	}
	return nil
}
