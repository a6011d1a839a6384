package bnb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/susu3304/seisanbot/internal/solver"
	"go.uber.org/zap"
)

const (
	// intTol is how far from an integer a value may sit and still count as
	// integral.
	intTol = 1e-6
	// checkTol is the tolerance used to accept an assignment as feasible.
	checkTol = 1e-6
)

// Solver is a depth-first branch-and-bound MIP solver over gonum LP
// relaxations.
type Solver struct {
	logger *zap.Logger
}

var _ solver.Solver = (*Solver)(nil)

// New returns a branch-and-bound solver. A nil logger is allowed.
func New(logger *zap.Logger) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{logger: logger.Named("bnb")}
}

// Name implements solver.Solver.
func (s *Solver) Name() string { return "bnb" }

// node is a subproblem: the model with tightened bounds.
type node struct {
	lo, hi []float64
	depth  int
}

// engine holds the state of one Solve call. The search runs on its own
// goroutine; mu guards the incumbent, which Solve reads when the deadline
// fires mid-search.
type engine struct {
	m        *solver.Model
	integral bool // objective takes integer values on integer points
	stop     atomic.Bool
	nodes    atomic.Int64

	mu      sync.Mutex
	best    []float64
	bestObj float64
}

// Solve implements solver.Solver. The deadline is enforced on the caller's
// side: a node LP cannot be interrupted, so when the time limit or ctx
// expires Solve returns the incumbent immediately and the search goroutine
// exits after its current node.
func (s *Solver) Solve(ctx context.Context, m *solver.Model, timeLimit time.Duration) (*solver.Solution, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if timeLimit <= 0 {
		return nil, fmt.Errorf("bnb: time limit must be positive, got %s", timeLimit)
	}
	start := time.Now()

	e := &engine{m: m, integral: integralObjective(m), bestObj: math.Inf(1)}
	if m.Start != nil {
		if err := m.Check(m.Start, checkTol); err == nil {
			e.offer(m.Start)
		} else {
			s.logger.Debug("warm start rejected", zap.Error(err))
		}
	}

	root := node{lo: make([]float64, len(m.Vars)), hi: make([]float64, len(m.Vars))}
	for j, v := range m.Vars {
		root.lo[j], root.hi[j] = v.Lower, v.Upper
		if v.Kind != solver.Continuous {
			root.lo[j] = math.Ceil(v.Lower - intTol)
			root.hi[j] = math.Floor(v.Upper + intTol)
		}
		if root.lo[j] > root.hi[j] {
			return e.finish(solver.StatusInfeasible, start), nil
		}
	}

	deadline := start.Add(timeLimit)
	timer := time.NewTimer(timeLimit)
	defer timer.Stop()
	type outcome struct {
		exhausted bool
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		exhausted, err := e.search(ctx, root, deadline)
		done <- outcome{exhausted, err}
	}()

	timedOut := false
	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		timedOut = !out.exhausted
	case <-timer.C:
		e.stop.Store(true)
		timedOut = true
	case <-ctx.Done():
		e.stop.Store(true)
		timedOut = true
	}

	status := solver.StatusInfeasible
	hasBest := e.hasIncumbent()
	switch {
	case timedOut && hasBest:
		status = solver.StatusFeasibleTimeout
	case timedOut:
		status = solver.StatusTimeout
	case hasBest:
		status = solver.StatusOptimal
	}
	sol := e.finish(status, start)
	s.logger.Debug("search finished",
		zap.String("model", m.Name),
		zap.Stringer("status", status),
		zap.Int64("nodes", e.nodes.Load()),
		zap.Float64("objective", sol.Objective),
		zap.Duration("elapsed", sol.Elapsed),
	)
	return sol, nil
}

// search explores the tree depth first. It reports whether the tree was
// exhausted; it gives up between nodes once the deadline passes, ctx is done
// or stop is set.
func (e *engine) search(ctx context.Context, root node, deadline time.Time) (bool, error) {
	m := e.m
	stack := []node{root}
	for len(stack) > 0 {
		if e.stop.Load() || ctx.Err() != nil || time.Now().After(deadline) {
			return false, nil
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e.nodes.Add(1)

		r, err := relax(m, nd.lo, nd.hi)
		switch {
		case errors.Is(err, errNodeInfeasible):
			continue
		case errors.Is(err, solver.ErrUnbounded):
			if nd.depth == 0 {
				return false, err
			}
			continue
		case err != nil:
			return false, err
		}
		if e.prune(r.objective) {
			continue
		}

		j := e.branchVar(r.values)
		if j < 0 {
			e.offer(roundIntegers(m, r.values))
			continue
		}

		x := r.values[j]
		down := node{lo: nd.lo, hi: clone(nd.hi), depth: nd.depth + 1}
		down.hi[j] = math.Floor(x)
		up := node{lo: clone(nd.lo), hi: nd.hi, depth: nd.depth + 1}
		up.lo[j] = math.Ceil(x)

		// the child closer to the relaxed value is explored first
		if x-math.Floor(x) >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}
	return true, nil
}

// offer records values as the incumbent when feasible and better.
func (e *engine) offer(values []float64) {
	if err := e.m.Check(values, checkTol); err != nil {
		return
	}
	obj := e.m.Evaluate(values)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.best != nil && obj >= e.bestObj-checkTol {
		return
	}
	e.best = clone(values)
	e.bestObj = obj
}

// prune reports whether a node with relaxed objective z cannot beat the
// incumbent.
func (e *engine) prune(z float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.best == nil {
		return false
	}
	if e.integral {
		z = math.Ceil(z - intTol)
	}
	return z >= e.bestObj-checkTol
}

func (e *engine) hasIncumbent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.best != nil
}

// branchVar picks the most fractional integer variable, lowest index on
// ties, or -1 when every integer variable is integral.
func (e *engine) branchVar(values []float64) int {
	j, best := -1, intTol
	for k, v := range e.m.Vars {
		if v.Kind == solver.Continuous {
			continue
		}
		f := values[k] - math.Floor(values[k])
		dist := math.Min(f, 1-f)
		if dist > best {
			j, best = k, dist
		}
	}
	return j
}

func (e *engine) finish(status solver.Status, start time.Time) *solver.Solution {
	sol := &solver.Solution{Status: status, Elapsed: time.Since(start)}
	if status.HasSolution() {
		e.mu.Lock()
		sol.Values = clone(e.best)
		sol.Objective = e.bestObj
		e.mu.Unlock()
	}
	return sol
}

// integralObjective reports whether every objective term has an integer
// coefficient on an integer or binary variable.
func integralObjective(m *solver.Model) bool {
	for _, t := range m.Objective {
		if m.Vars[t.Var].Kind == solver.Continuous || t.Coef != math.Trunc(t.Coef) {
			return false
		}
	}
	return true
}

func roundIntegers(m *solver.Model, values []float64) []float64 {
	out := clone(values)
	for j, v := range m.Vars {
		if v.Kind != solver.Continuous {
			out[j] = math.Round(out[j])
		}
	}
	return out
}

func clone(s []float64) []float64 {
	return append([]float64(nil), s...)
}
