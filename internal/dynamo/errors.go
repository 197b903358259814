package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for network construction and simulation.
var (
	// ErrShapeMismatch indicates mismatched dimensions among masses, matrices and state.
	ErrShapeMismatch = errors.New("dynamo: shape mismatch")

	// ErrInvalidParameter indicates a non-symmetric or negative-diagonal matrix, or a bad event.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrInvalidTimeVector indicates an empty, non-finite or decreasing time vector.
	ErrInvalidTimeVector = errors.New("dynamo: invalid time vector")

	// ErrNonDiagonalizable indicates the analytic path cannot proceed.
	ErrNonDiagonalizable = errors.New("dynamo: system matrix is not diagonalizable")

	// ErrNumericalInstability indicates a residual imaginary part above tolerance.
	ErrNumericalInstability = errors.New("dynamo: numerical instability in analytic reconstruction")

	// ErrNumericalDivergence indicates the integrator state exceeded its ceiling.
	ErrNumericalDivergence = errors.New("dynamo: simulation diverged")

	// ErrUnderdeterminedSystem indicates distance estimation lacks constraints.
	ErrUnderdeterminedSystem = errors.New("dynamo: underdetermined system")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
