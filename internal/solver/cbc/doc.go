// Package cbc solves models with the COIN-OR cbc executable.
//
// The model is written to a temporary CPLEX LP file and cbc is invoked as
//
//	cbc model.lp sec N timeMode elapsed branch printingOptions all solution model.sol
//
// so the time limit is wall clock. The solution file's first line carries the
// status ("Optimal", "Infeasible", "Stopped on time", ...); the remaining
// lines list every column with its value.
package cbc
