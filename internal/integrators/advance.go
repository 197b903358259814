package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/oscnet/internal/dynamo"
)

// DefaultCeiling is the state magnitude treated as divergence.
const DefaultCeiling = 1e12

// Advancer drives a fixed-step integrator across a list of sample times,
// sub-stepping so that no internal step exceeds Dt and every requested time
// is hit exactly.
type Advancer struct {
	Integrator dynamo.Integrator
	Dt         float64
	Ceiling    float64
	// Project, when set, is applied to the state after every internal step.
	Project func(t float64, x dynamo.State)

	steps int
}

// Steps returns the number of internal steps taken so far.
func (a *Advancer) Steps() int { return a.steps }

// Advance integrates from (t0, x0) and returns the state at each of times.
// times must be non-decreasing and not before t0.
func (a *Advancer) Advance(ctx context.Context, dyn dynamo.System, x0 dynamo.State, t0 float64, times []float64) ([]dynamo.State, error) {
	if a.Dt <= 0 {
		return nil, fmt.Errorf("step must be positive, got %g: %w", a.Dt, dynamo.ErrInvalidParameter)
	}
	ceiling := a.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	out := make([]dynamo.State, len(times))
	x := x0.Clone()
	t := t0

	for i, target := range times {
		if target < t {
			return nil, fmt.Errorf("sample %g precedes current time %g: %w", target, t, dynamo.ErrInvalidTimeVector)
		}
		span := target - t
		if span > 0 {
			n := int(math.Ceil(span/a.Dt - 1e-9))
			if n < 1 {
				n = 1
			}
			h := span / float64(n)
			for s := 1; s <= n; s++ {
				select {
				case <-ctx.Done():
					return nil, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err())
				default:
				}

				x = a.Integrator.Step(dyn, x, t+float64(s-1)*h, h)
				ts := t + float64(s)*h
				if s == n {
					ts = target
				}
				if a.Project != nil {
					a.Project(ts, x)
				}
				a.steps++

				if !x.IsValid() || x.MaxAbs() > ceiling {
					return nil, &dynamo.SimulationError{
						Step:    a.steps,
						Time:    ts,
						State:   x.Clone(),
						Wrapped: dynamo.ErrNumericalDivergence,
					}
				}
			}
			t = target
		}
		out[i] = x.Clone()
	}

	return out, nil
}

// StepSize picks the internal step: fraction times the smallest positive
// interval between samples, capped at maxStep.
func StepSize(times []float64, fraction, maxStep float64) float64 {
	dt := maxStep
	for i := 1; i < len(times); i++ {
		if d := times[i] - times[i-1]; d > 0 && fraction*d < dt {
			dt = fraction * d
		}
	}
	return dt
}
