// Package analysis derives quantities from a network or from a trajectory
// without simulating it again.
//
//   - [Resonances]: natural frequency and damping ratio of every mode, from
//     the eigenvalues of the system matrix
//   - [EstimateDistances]: spring rest lengths that make a given state a
//     static equilibrium
//   - [DominantFrequency]: strongest spectral line of a sampled channel
//   - [NewPhasePortrait]: position/velocity trace of one oscillator
//
// # Ground modes
//
// Rest lengths are not unique: a network with c couplings and g ground
// springs has c+g unknowns but only one balance equation per oscillator.
// [Individual] picks the solution in which every spring is relaxed (or
// stretched only by the given loads). [Uniform] forces all ground springs of
// a connected group to share one rest length and lets the couplings absorb
// the difference:
//
//	rest, err := analysis.EstimateDistances(k, eq, analysis.Uniform, nil)
package analysis
