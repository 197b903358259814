package events

import "github.com/san-kum/oscnet/internal/dynamo"

// Constraint forces state[Index] to Value + Slope·(t - Start).
type Constraint struct {
	Index int
	Value float64
	Slope float64
	Start float64
}

func (c Constraint) At(t float64) float64 {
	return c.Value + c.Slope*(t-c.Start)
}

// Apply writes every constraint into x in order.
func Apply(cs []Constraint, t float64, x dynamo.State) {
	for _, c := range cs {
		x[c.Index] = c.At(t)
	}
}

// Rates overwrites the derivatives of constrained variables with their
// prescribed rate of change.
func Rates(cs []Constraint, dx dynamo.State) {
	for _, c := range cs {
		dx[c.Index] = c.Slope
	}
}
