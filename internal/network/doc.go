// Package network models a set of point masses linked pairwise by springs
// and dampers and derives its first-order state-space form.
//
// Matrices follow one convention throughout: the diagonal entry (i,i) is the
// connection of oscillator i to the ground reference, the off-diagonal entry
// (i,j) is the connection between oscillators i and j. For i<j the rest
// length L[i][j] is the rest value of x_j - x_i.
//
// A [Model] is immutable. [Model.Update] returns a new model, so a model can
// be shared by concurrent simulations without locking.
package network
