package solver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidModel is returned for structurally broken models.
	ErrInvalidModel = errors.New("solver: invalid model")

	// ErrUnbounded is returned when the objective can decrease without limit.
	ErrUnbounded = errors.New("solver: unbounded objective")
)

// Status is the outcome class of a solve.
type Status int

const (
	// StatusOptimal means the returned assignment is provably optimal.
	StatusOptimal Status = iota
	// StatusFeasibleTimeout means the time limit hit after a feasible
	// assignment was found; optimality is not proven.
	StatusFeasibleTimeout
	// StatusTimeout means the time limit hit before any feasible assignment.
	StatusTimeout
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusError means the backend failed to produce a result.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasibleTimeout:
		return "FEASIBLE_TIMEOUT"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// HasSolution reports whether a Solution with this status carries values.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasibleTimeout
}

// Solution is the raw result of a solve. Values is indexed like Model.Vars
// and is nil unless Status.HasSolution().
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Elapsed   time.Duration
}

// Value returns the solved value of id, or 0 when there is no assignment.
func (s *Solution) Value(id VarID) float64 {
	if s == nil || int(id) >= len(s.Values) || id < 0 {
		return 0
	}
	return s.Values[id]
}

// Solver is a MIP backend. Solve must treat timeLimit as a wall-clock
// cutoff and must not mutate m. A non-nil error means the backend itself
// failed; infeasibility and timeouts are reported through Solution.Status.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *Model, timeLimit time.Duration) (*Solution, error)
}
