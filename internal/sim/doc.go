// Package sim orchestrates oscillator network simulations.
//
// [Scheduler.Simulate] cuts the requested time vector at event boundaries and
// advances each segment in order:
//
//   - without events, the whole time vector is evaluated from the closed-form
//     solution in one call, falling back to numeric integration when the
//     system matrix is not diagonalizable;
//   - with events, every segment is integrated numerically and pinned or
//     ramped variables are re-imposed after every step.
//
// A state value reported at an event time is the state after the event.
//
// Simulate keeps no state between calls; [Scheduler.Batch] runs independent
// requests concurrently.
package sim
