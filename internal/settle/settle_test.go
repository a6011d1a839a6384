package settle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/seisanbot/internal/solver"
	"github.com/susu3304/seisanbot/internal/solver/bnb"
)

// stubSolver answers every solve with fn.
type stubSolver struct {
	fn func(m *solver.Model) (*solver.Solution, error)
}

func (s *stubSolver) Name() string { return "stub" }

func (s *stubSolver) Solve(_ context.Context, m *solver.Model, _ time.Duration) (*solver.Solution, error) {
	return s.fn(m)
}

// startSolver returns the model's warm start with the given status.
func startSolver(status solver.Status) *stubSolver {
	return &stubSolver{fn: func(m *solver.Model) (*solver.Solution, error) {
		return &solver.Solution{Status: status, Values: append([]float64(nil), m.Start...)}, nil
	}}
}

func options(s solver.Solver) Options {
	return Options{TimeLimit: 30 * time.Second, Solver: s}
}

func settleBnB(t *testing.T, b Balances) *Result {
	t.Helper()
	res, err := Settle(context.Background(), b, options(bnb.New(nil)))
	require.NoError(t, err)
	return res
}

func assertSettles(t *testing.T, b Balances, transfers []Transfer) {
	t.Helper()
	for _, r := range Residuals(b, transfers) {
		assert.Zero(t, r)
	}
	for _, tr := range transfers {
		assert.Positive(t, tr.Amount)
		assert.NotEqual(t, tr.From, tr.To)
	}
}

// minTransfers is the brute-force optimum: with k non-zero balances the
// fewest transfers is k minus the largest number of disjoint zero-sum groups
// they split into.
func minTransfers(b Balances) int {
	var amounts []int64
	for _, x := range b {
		if x.Amount != 0 {
			amounts = append(amounts, x.Amount)
		}
	}
	k := len(amounts)
	full := 1<<k - 1
	sum := make([]int64, full+1)
	groups := make([]int, full+1)
	for mask := 1; mask <= full; mask++ {
		for i := 0; i < k; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			prev := mask &^ (1 << i)
			sum[mask] = sum[prev] + amounts[i]
			if groups[prev] > groups[mask] {
				groups[mask] = groups[prev]
			}
		}
		if sum[mask] == 0 {
			groups[mask]++
		}
	}
	return k - groups[full]
}

func TestSettleTwoParties(t *testing.T) {
	res := settleBnB(t, Balances{{"A", 10}, {"B", -10}})
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.Equal(t, []Transfer{{From: "B", To: "A", Amount: 10}}, res.Transfers)
	assert.NotEmpty(t, res.RunID)
}

func TestSettleThreeParties(t *testing.T) {
	b := Balances{{"A", 10}, {"B", -5}, {"C", -5}}
	res := settleBnB(t, b)
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.Equal(t, []Transfer{
		{From: "B", To: "A", Amount: 5},
		{From: "C", To: "A", Amount: 5},
	}, res.Transfers)
}

func TestSettleAllZero(t *testing.T) {
	res := settleBnB(t, Balances{{"A", 0}, {"B", 0}, {"C", 0}})
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.Empty(t, res.Transfers)
	assert.NotNil(t, res.Transfers)
}

func TestSettleMinimality(t *testing.T) {
	cases := []Balances{
		{{"A", 6}, {"B", 4}, {"C", -5}, {"D", -5}},
		{{"A", 5}, {"B", -5}, {"C", 3}, {"D", -3}},
		{{"A", 4}, {"B", -1}, {"C", -1}, {"D", -2}},
		{{"A", 5}, {"B", 3}, {"C", -2}, {"D", -6}},
		{{"A", 7}, {"B", -3}, {"C", 3}, {"D", -7}, {"E", 0}},
		{{"A", 1}, {"B", -1}, {"C", 2}, {"D", -2}, {"E", 0}},
	}
	for i, b := range cases {
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			res := settleBnB(t, b)
			require.Equal(t, solver.StatusOptimal, res.Status)
			assertSettles(t, b, res.Transfers)
			assert.Len(t, res.Transfers, minTransfers(b))
		})
	}
}

func TestSettleEdgeCountIsStable(t *testing.T) {
	b := Balances{{"A", 6}, {"B", 4}, {"C", -5}, {"D", -5}}
	first := settleBnB(t, b)
	second := settleBnB(t, b)
	assert.Equal(t, len(first.Transfers), len(second.Transfers))
}

func TestSettleRejectsInput(t *testing.T) {
	called := false
	s := &stubSolver{fn: func(*solver.Model) (*solver.Solution, error) {
		called = true
		return nil, errors.New("must not be called")
	}}

	_, err := Settle(context.Background(), Balances{{"A", 5}, {"B", -3}}, options(s))
	var ue *UnbalancedInputError
	require.ErrorAs(t, err, &ue)
	assert.EqualValues(t, 2, ue.Residual)

	_, err = Settle(context.Background(), Balances{{"A", 0}}, options(s))
	var de *DegenerateInputError
	require.ErrorAs(t, err, &de)

	_, err = Settle(context.Background(), Balances{{"A", 1}, {"B", -1}}, Options{TimeLimit: 500 * time.Millisecond, Solver: s})
	assert.ErrorIs(t, err, ErrInvalidTimeLimit)

	_, err = Settle(context.Background(), Balances{{"A", 1}, {"B", -1}}, Options{TimeLimit: time.Second})
	assert.ErrorIs(t, err, ErrNoSolver)

	assert.False(t, called)
}

func TestSettleSolverOutcomes(t *testing.T) {
	b := Balances{{"A", 10}, {"B", -5}, {"C", -5}}

	t.Run("feasible timeout keeps best known", func(t *testing.T) {
		_, err := Settle(context.Background(), b, options(startSolver(solver.StatusFeasibleTimeout)))
		var te *TimeoutError
		require.ErrorAs(t, err, &te)
		require.True(t, te.HasSolution())
		assertSettles(t, b, te.BestKnown)
	})

	t.Run("timeout without solution", func(t *testing.T) {
		_, err := Settle(context.Background(), b, options(startSolver(solver.StatusTimeout)))
		var te *TimeoutError
		require.ErrorAs(t, err, &te)
		assert.False(t, te.HasSolution())
	})

	t.Run("infeasible is an internal error", func(t *testing.T) {
		_, err := Settle(context.Background(), b, options(startSolver(solver.StatusInfeasible)))
		assert.ErrorIs(t, err, ErrSolverInfeasible)
	})

	t.Run("backend failure", func(t *testing.T) {
		cause := errors.New("no license")
		s := &stubSolver{fn: func(*solver.Model) (*solver.Solution, error) { return nil, cause }}
		_, err := Settle(context.Background(), b, options(s))
		var be *BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "stub", be.Backend)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("inconsistent values", func(t *testing.T) {
		s := &stubSolver{fn: func(m *solver.Model) (*solver.Solution, error) {
			return &solver.Solution{Status: solver.StatusOptimal, Values: make([]float64, m.NumVars())}, nil
		}}
		_, err := Settle(context.Background(), b, options(s))
		assert.ErrorIs(t, err, ErrInconsistentSolution)
	})
}

func TestSettleLargeGroupStaysWithinTimeLimit(t *testing.T) {
	const n = 30
	b := make(Balances, 0, n)
	var sum int64
	for i := 0; i < n-1; i++ {
		amount := int64((i*37)%101 - 50)
		b = append(b, Balance{Participant: Participant(fmt.Sprintf("p%02d", i)), Amount: amount})
		sum += amount
	}
	b = append(b, Balance{Participant: "p29", Amount: -sum})

	start := time.Now()
	_, err := Settle(context.Background(), b, Options{TimeLimit: time.Second, Solver: bnb.New(nil)})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2500*time.Millisecond)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	require.True(t, te.HasSolution())
	assertSettles(t, b, te.BestKnown)
	assert.LessOrEqual(t, len(te.BestKnown), n-1)
}

func TestSettleSuppressesSolverNoise(t *testing.T) {
	b := Balances{{"A", 10}, {"B", -5}, {"C", -5}}
	s := &stubSolver{fn: func(m *solver.Model) (*solver.Solution, error) {
		values := append([]float64(nil), m.Start...)
		for i, v := range m.Vars {
			if v.Kind == solver.Integer && values[i] == 0 {
				values[i] = 1e-7
			} else if v.Kind == solver.Integer {
				values[i] -= 1e-7
			}
		}
		return &solver.Solution{Status: solver.StatusOptimal, Values: values}, nil
	}}

	res, err := Settle(context.Background(), b, options(s))
	require.NoError(t, err)
	assert.Equal(t, []Transfer{
		{From: "B", To: "A", Amount: 5},
		{From: "C", To: "A", Amount: 5},
	}, res.Transfers)
}

func TestExtractOrderAndThreshold(t *testing.T) {
	b := Balances{{"A", 0}, {"B", 0}, {"C", 0}}
	fm := buildModel(b)
	values := make([]float64, fm.model.NumVars())
	values[fm.flow[2][0]] = 3.0000001
	values[fm.flow[0][2]] = 1e-7
	values[fm.flow[1][0]] = 0.4
	values[fm.flow[0][1]] = 1.9999998

	got := extract(&solver.Solution{Status: solver.StatusOptimal, Values: values}, fm)
	assert.Equal(t, []Transfer{
		{From: "A", To: "B", Amount: 2},
		{From: "C", To: "A", Amount: 3},
	}, got)
}

func TestSettleHonorsRunID(t *testing.T) {
	res, err := Settle(context.Background(), Balances{{"A", 1}, {"B", -1}}, Options{
		TimeLimit: time.Second,
		Solver:    startSolver(solver.StatusOptimal),
		RunID:     "run-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
}
