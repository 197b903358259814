// Package dynamo provides the core primitives shared by the oscillator network
// simulator.
//
// The package defines the fundamental interfaces and types:
//
//   - [State]: state vector laid out as [x_1..x_N, v_1..v_N]
//   - [System]: interface for first-order systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step numerical stepper
//   - [Metric]: observer reducing a trajectory to a scalar
//   - [Result]: time-indexed trajectory table produced by a simulation
//
// # Errors
//
// Every failure mode of the simulator is a sentinel error declared here so
// callers can branch with [errors.Is] regardless of which package raised it.
package dynamo
