package settle

import (
	"fmt"
	"math"

	"github.com/susu3304/seisanbot/internal/solver"
)

// flowModel is the settlement MIP together with the variable index needed
// to read a solution back.
//
//	x_i_j ∈ ℤ, 0 ≤ x_i_j ≤ M   amount paid by i to j
//	y_i_j ∈ {0,1}              whether i pays j at all
//
//	balance_p:  Σ_i x_i_p − Σ_j x_p_j = b_p   for every p
//	link_i_j:   x_i_j − M·y_i_j ≤ 0          for every i ≠ j
//	minimize    Σ y_i_j
//
// with M = Σ|b_p|, an upper bound on the flow over any single edge.
type flowModel struct {
	model        *solver.Model
	participants []Participant
	flow         [][]solver.VarID
	edge         [][]solver.VarID
	bigM         float64
}

func buildModel(b Balances) *flowModel {
	n := len(b)
	fm := &flowModel{
		model:        solver.NewModel("minimize_transfers"),
		participants: b.Participants(),
		flow:         square(n),
		edge:         square(n),
	}
	for _, x := range b {
		fm.bigM += math.Abs(float64(x.Amount))
	}

	m := fm.model
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				fm.flow[i][j] = m.AddVar(fmt.Sprintf("x_%d_%d", i, j), solver.Integer, 0, fm.bigM)
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				fm.edge[i][j] = m.AddVar(fmt.Sprintf("y_%d_%d", i, j), solver.Binary, 0, 1)
			}
		}
	}

	for p := 0; p < n; p++ {
		terms := make([]solver.Term, 0, 2*(n-1))
		for i := 0; i < n; i++ {
			if i != p {
				terms = append(terms, solver.Term{Var: fm.flow[i][p], Coef: 1})
			}
		}
		for j := 0; j < n; j++ {
			if j != p {
				terms = append(terms, solver.Term{Var: fm.flow[p][j], Coef: -1})
			}
		}
		m.AddConstraint(fmt.Sprintf("balance_%d", p), terms, solver.Equal, float64(b[p].Amount))
	}

	objective := make([]solver.Term, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			m.AddConstraint(fmt.Sprintf("link_%d_%d", i, j), []solver.Term{
				{Var: fm.flow[i][j], Coef: 1},
				{Var: fm.edge[i][j], Coef: -fm.bigM},
			}, solver.LessEqual, 0)
			objective = append(objective, solver.Term{Var: fm.edge[i][j], Coef: 1})
		}
	}
	m.Minimize(objective)
	m.SetStart(fm.assignment(greedy(b)))
	return fm
}

// assignment converts transfers into a variable assignment of the model.
func (fm *flowModel) assignment(transfers []Transfer) []float64 {
	idx := make(map[Participant]int, len(fm.participants))
	for i, p := range fm.participants {
		idx[p] = i
	}
	values := make([]float64, fm.model.NumVars())
	for _, t := range transfers {
		i, j := idx[t.From], idx[t.To]
		values[fm.flow[i][j]] += float64(t.Amount)
		values[fm.edge[i][j]] = 1
	}
	return values
}

func square(n int) [][]solver.VarID {
	out := make([][]solver.VarID, n)
	for i := range out {
		out[i] = make([]solver.VarID, n)
		for j := range out[i] {
			out[i][j] = -1
		}
	}
	return out
}
