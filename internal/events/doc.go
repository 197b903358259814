// Package events describes externally imposed overrides of single state
// variables at given times.
//
// An [Event] targets one variable, written "x.<i>" for the position or
// "v.<i>" for the velocity of oscillator i (1-based), and carries one of three
// interpolation kinds:
//
//   - [Instantaneous]: the variable jumps to the target once; the dynamics
//     resume from there.
//   - [Hold]: the variable is pinned to the target until the next event on
//     the same variable. Holding a position also pins its velocity to zero.
//   - [Linear]: the variable follows the straight line between this target
//     and the next event's target on the same variable, and stays at the
//     last target after the final event.
//
// A [Set] is built once per simulation run and never edited; build a new one
// to change the events of a later run.
package events
