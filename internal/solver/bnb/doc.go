// Package bnb is a pure Go mixed-integer solver.
//
// Each search node solves the LP relaxation of the model under tightened
// variable bounds with gonum's simplex implementation, then branches on the
// most fractional integer variable. The search is depth first and keeps the
// best integral assignment seen so far as the incumbent; a warm start on the
// model seeds it.
//
// Pruning:
//   - a node is dropped when its relaxed objective cannot beat the incumbent;
//   - when every objective term is an integer coefficient on an integer
//     variable the relaxed objective is rounded up before the comparison.
//
// The time limit is a wall-clock cutoff checked between nodes. When it fires
// the incumbent, if any, is returned with StatusFeasibleTimeout.
//
// Equality systems such as flow conservation are often rank deficient; the
// node LP drops dependent rows before calling the simplex, since lp.Simplex
// requires a full row rank constraint matrix.
package bnb
