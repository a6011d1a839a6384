// Package solver describes mixed-integer linear programs and the backends
// that solve them.
//
// A Model is always a minimization. Variables carry a kind (continuous,
// integer, binary) and box bounds; constraints are linear with a sense of
// <=, >= or =. Backends live in subpackages (bnb, cbc) and are selected by
// name through package backends.
package solver
