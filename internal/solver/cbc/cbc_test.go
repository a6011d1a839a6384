package cbc

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/seisanbot/internal/solver"
)

func smallModel() *solver.Model {
	m := solver.NewModel("small")
	x := m.AddVar("x_0_1", solver.Integer, 0, math.Inf(1))
	y := m.AddVar("y_0_1", solver.Binary, 0, 1)
	m.AddConstraint("balance_0", []solver.Term{{Var: x, Coef: -1}}, solver.Equal, -10)
	m.AddConstraint("link_0_1", []solver.Term{{Var: x, Coef: 1}, {Var: y, Coef: -20}}, solver.LessEqual, 0)
	m.Minimize([]solver.Term{{Var: y, Coef: 1}})
	return m
}

func TestWriteLP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, smallModel()))

	want := strings.Join([]string{
		`\* small *\`,
		"Minimize",
		" obj: y_0_1",
		"Subject To",
		" balance_0: - x_0_1 = -10",
		" link_0_1: x_0_1 - 20 y_0_1 <= 0",
		"Bounds",
		" x_0_1 >= 0",
		"Generals",
		" x_0_1",
		"Binaries",
		" y_0_1",
		"End",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteLPWrapsLongExpressions(t *testing.T) {
	m := solver.NewModel("wide")
	var terms []solver.Term
	for i := 0; i < 100; i++ {
		v := m.AddVar("variable_with_a_long_name", solver.Continuous, 0, 5)
		terms = append(terms, solver.Term{Var: v, Coef: 1})
	}
	m.Minimize(terms)

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, m))
	for _, line := range strings.Split(buf.String(), "\n") {
		assert.LessOrEqual(t, len(line), lpLineWidth+32)
	}
	assert.Contains(t, buf.String(), " 0 <= variable_with_a_long_name <= 5\n")
}

func TestParseSolution(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		status solver.Status
		values []float64
	}{
		{
			name: "optimal",
			file: "Optimal - objective value 1.00000000\n" +
				"      0 x_0_1                  10                       0\n" +
				"      1 y_0_1                   1                       1\n",
			status: solver.StatusOptimal,
			values: []float64{10, 1},
		},
		{
			name: "stopped with solution",
			file: "Stopped on time - objective value 1.00000000\n" +
				"**    0 x_0_1                  10                       0\n" +
				"      1 y_0_1                   1                       1\n",
			status: solver.StatusFeasibleTimeout,
			values: []float64{10, 1},
		},
		{
			name:   "stopped without solution",
			file:   "Stopped on time - objective value 1e+50\n",
			status: solver.StatusTimeout,
		},
		{
			name:   "infeasible",
			file:   "Infeasible - objective value 0.00000000\n",
			status: solver.StatusInfeasible,
		},
		{
			name:   "integer infeasible",
			file:   "Integer infeasible - objective value 0.00000000\n",
			status: solver.StatusInfeasible,
		},
		{
			name:   "unknown",
			file:   "Unbounded - objective value 0\n",
			status: solver.StatusError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sf, err := parseSolution(strings.NewReader(tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.status, sf.classify())
			if tt.values != nil {
				assert.Equal(t, tt.values, sf.assignment(smallModel()))
			}
		})
	}
}

func TestParseSolutionEmpty(t *testing.T) {
	_, err := parseSolution(strings.NewReader(""))
	assert.Error(t, err)
}

func TestSolveMissingExecutable(t *testing.T) {
	s := New("/nonexistent/cbc-binary", nil)
	assert.False(t, s.Available())
	_, err := s.Solve(context.Background(), smallModel(), time.Second)
	assert.ErrorContains(t, err, "not found")
}

func TestSolveWithInstalledCBC(t *testing.T) {
	s := New("", nil)
	if !s.Available() {
		t.Skip("cbc not installed")
	}
	m := smallModel()
	sol, err := s.Solve(context.Background(), m, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, sol.Status)
	assert.InDelta(t, 10, sol.Values[0], 1e-6)
	assert.InDelta(t, 1, sol.Objective, 1e-6)
}
