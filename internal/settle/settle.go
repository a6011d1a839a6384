package settle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/seisanbot/internal/solver"
	"go.uber.org/zap"
)

// Options configures one settlement.
type Options struct {
	// TimeLimit is the wall-clock budget of the solve; at least one second.
	TimeLimit time.Duration
	// Solver is the MIP backend.
	Solver solver.Solver
	// Logger may be nil.
	Logger *zap.Logger
	// RunID tags log lines and the result; a UUID is generated when empty.
	RunID string
}

// Result is a settlement with the solver's optimality proof.
type Result struct {
	RunID     string
	Status    solver.Status
	Transfers []Transfer
	Elapsed   time.Duration
}

// Settle computes a list of transfers that zeroes every balance using the
// fewest distinct payer/payee edges the solver can find within the time
// limit.
//
// Errors: *DegenerateInputError, *DuplicateParticipantError and
// *UnbalancedInputError before any solving; ErrInvalidTimeLimit, ErrNoSolver
// for bad options; *TimeoutError when the limit ran out (with the best
// settlement found, if any); *BackendError when the solver failed;
// ErrSolverInfeasible and ErrInconsistentSolution on internal faults.
func Settle(ctx context.Context, b Balances, opts Options) (*Result, error) {
	if err := Validate(b); err != nil {
		return nil, err
	}
	if opts.TimeLimit < time.Second {
		return nil, ErrInvalidTimeLimit
	}
	if opts.Solver == nil {
		return nil, ErrNoSolver
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = logger.With(
		zap.String("run_id", runID),
		zap.Int("participants", len(b)),
		zap.String("backend", opts.Solver.Name()),
	)

	fm := buildModel(b)
	logger.Debug("model built",
		zap.Int("variables", fm.model.NumVars()),
		zap.Int("constraints", len(fm.model.Constraints)),
		zap.Float64("big_m", fm.bigM),
	)

	sol, err := opts.Solver.Solve(ctx, fm.model, opts.TimeLimit)
	if err != nil {
		logger.Error("solver failed", zap.Error(err))
		return nil, &BackendError{Backend: opts.Solver.Name(), Err: err}
	}
	logger = logger.With(zap.Stringer("status", sol.Status), zap.Duration("elapsed", sol.Elapsed))

	switch sol.Status {
	case solver.StatusOptimal, solver.StatusFeasibleTimeout:
	case solver.StatusTimeout:
		logger.Warn("time limit reached without a settlement")
		return nil, &TimeoutError{}
	case solver.StatusInfeasible:
		logger.Error("balanced model reported infeasible")
		return nil, ErrSolverInfeasible
	default:
		return nil, &BackendError{Backend: opts.Solver.Name(), Err: fmt.Errorf("unexpected status %s", sol.Status)}
	}

	transfers := extract(sol, fm)
	for i, r := range Residuals(b, transfers) {
		if r != 0 {
			logger.Error("solution leaves a balance unsettled",
				zap.String("participant", string(b[i].Participant)),
				zap.Int64("residual", r),
			)
			return nil, fmt.Errorf("%w: %q left with %d", ErrInconsistentSolution, string(b[i].Participant), r)
		}
	}

	if sol.Status == solver.StatusFeasibleTimeout {
		logger.Warn("time limit reached; returning best known settlement", zap.Int("transfers", len(transfers)))
		return nil, &TimeoutError{BestKnown: transfers}
	}
	logger.Info("settled", zap.Int("transfers", len(transfers)))
	return &Result{RunID: runID, Status: sol.Status, Transfers: transfers, Elapsed: sol.Elapsed}, nil
}
