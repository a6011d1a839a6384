package settle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimeLimit is returned when Options.TimeLimit is under one second.
	ErrInvalidTimeLimit = errors.New("settle: time limit must be at least 1s")

	// ErrNoSolver is returned when Options.Solver is nil.
	ErrNoSolver = errors.New("settle: no solver configured")

	// ErrSolverInfeasible means the solver proved a validated model
	// infeasible. This is an internal bug, not a user error.
	ErrSolverInfeasible = errors.New("settle: solver reported a balanced model infeasible")

	// ErrInconsistentSolution means the solved flows do not zero every
	// balance. This is an internal bug, not a user error.
	ErrInconsistentSolution = errors.New("settle: solution does not settle every balance")
)

// UnbalancedInputError is returned when balances do not sum to zero.
// Residual is the amount still unaccounted for.
type UnbalancedInputError struct {
	Residual int64
}

func (e *UnbalancedInputError) Error() string {
	return fmt.Sprintf("settle: balances sum to %d, not 0", e.Residual)
}

// DegenerateInputError is returned for fewer than two participants.
type DegenerateInputError struct {
	Count int
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("settle: need at least 2 participants, got %d", e.Count)
}

// DuplicateParticipantError is returned when a participant appears twice.
type DuplicateParticipantError struct {
	Participant Participant
}

func (e *DuplicateParticipantError) Error() string {
	return fmt.Sprintf("settle: participant %q listed more than once", string(e.Participant))
}

// TimeoutError is returned when the time limit ran out before the solver
// proved optimality. BestKnown holds the best feasible transfer list found,
// and is nil when none was found.
type TimeoutError struct {
	BestKnown []Transfer
}

// HasSolution reports whether BestKnown is a usable settlement.
func (e *TimeoutError) HasSolution() bool {
	return e.BestKnown != nil
}

func (e *TimeoutError) Error() string {
	if e.BestKnown == nil {
		return "settle: time limit reached before any settlement was found"
	}
	return fmt.Sprintf("settle: time limit reached; best settlement found uses %d transfers and may not be minimal", len(e.BestKnown))
}

// BackendError wraps a failure of the solver backend itself.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("settle: solver backend %s failed: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
