package bnb

import (
	"errors"
	"fmt"
	"math"

	"github.com/susu3304/seisanbot/internal/solver"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// errNodeInfeasible marks an LP relaxation with no feasible point.
var errNodeInfeasible = errors.New("bnb: relaxation infeasible")

const (
	// feasTol is the slack allowed when checking rows that lost every
	// structural column.
	feasTol = 1e-7
	// rankTol is the relative pivot size below which a row is treated as a
	// linear combination of the rows before it.
	rankTol = 1e-9
	// simplexTol is passed to lp.Simplex as the reduced-cost tolerance.
	simplexTol = 1e-10
)

// relaxation is one LP solved at a search node.
type relaxation struct {
	objective float64
	values    []float64
}

// relax solves the LP relaxation of m under the node bounds lo/hi.
//
// Finite upper bounds are added lazily: the LP is first solved without them
// and only the bounds the solution violates are turned into rows for the
// next attempt. A relaxation that is unbounded without its bound rows is
// re-solved with all of them.
func relax(m *solver.Model, lo, hi []float64) (*relaxation, error) {
	bounded := make([]bool, len(m.Vars))
	all := false
	for {
		r, err := relaxWith(m, lo, hi, bounded)
		if errors.Is(err, solver.ErrUnbounded) && !all {
			for j := range bounded {
				bounded[j] = true
			}
			all = true
			continue
		}
		if err != nil {
			return nil, err
		}
		added := false
		for j, v := range r.values {
			if !bounded[j] && v > hi[j]+feasTol {
				bounded[j] = true
				added = true
			}
		}
		if !added {
			return r, nil
		}
	}
}

// relaxWith solves the node LP with upper-bound rows for the variables
// marked in bounded.
//
// The node LP is rewritten into the standard form lp.Simplex expects
// (minimize cᵀz, Az = b, z ≥ 0): every free variable is shifted by its lower
// bound, finite upper bounds become rows with a slack, inequalities get a
// slack or surplus column, and fixed variables are substituted out.
func relaxWith(m *solver.Model, lo, hi []float64, bounded []bool) (*relaxation, error) {
	nv := len(m.Vars)

	// column index of each free variable, -1 when fixed
	col := make([]int, nv)
	ncols := 0
	for j := 0; j < nv; j++ {
		if hi[j]-lo[j] <= feasTol {
			col[j] = -1
			continue
		}
		col[j] = ncols
		ncols++
	}
	structural := ncols

	type row struct {
		coef  map[int]float64
		slack float64 // +1 slack, -1 surplus, 0 none
		rhs   float64
	}
	rows := make([]row, 0, len(m.Constraints)+structural)

	for _, c := range m.Constraints {
		r := row{coef: make(map[int]float64, len(c.Terms)), rhs: c.RHS}
		for _, t := range c.Terms {
			r.rhs -= t.Coef * lo[t.Var]
			if k := col[t.Var]; k >= 0 && t.Coef != 0 {
				r.coef[k] += t.Coef
			}
		}
		for k, v := range r.coef {
			if v == 0 {
				delete(r.coef, k)
			}
		}
		if len(r.coef) == 0 {
			// only constants left: check and drop
			if !holds(c.Sense, r.rhs) {
				return nil, errNodeInfeasible
			}
			continue
		}
		switch c.Sense {
		case solver.LessEqual:
			r.slack = 1
		case solver.GreaterEqual:
			r.slack = -1
		}
		rows = append(rows, r)
	}
	for j := 0; j < nv; j++ {
		if col[j] < 0 || !bounded[j] || math.IsInf(hi[j], 1) {
			continue
		}
		rows = append(rows, row{coef: map[int]float64{col[j]: 1}, slack: 1, rhs: hi[j] - lo[j]})
	}

	// objective over shifted columns
	cost := make([]float64, structural)
	offset := 0.0
	for _, t := range m.Objective {
		offset += t.Coef * lo[t.Var]
		if k := col[t.Var]; k >= 0 {
			cost[k] += t.Coef
		}
	}

	// dense [A | slacks] with b
	a := make([][]float64, len(rows))
	b := make([]float64, len(rows))
	for i, r := range rows {
		line := make([]float64, structural+len(rows))
		for k, v := range r.coef {
			line[k] = v
		}
		line[structural+i] = r.slack
		if r.rhs < 0 {
			for k := range line {
				line[k] = -line[k]
			}
			r.rhs = -r.rhs
		}
		a[i] = line
		b[i] = r.rhs
	}

	keep, err := independentRows(a, b)
	if err != nil {
		return nil, err
	}

	// keep only slack columns of surviving inequality rows, and drop
	// structural columns no surviving row touches
	used := make([]bool, structural+len(rows))
	for _, i := range keep {
		for k, v := range a[i] {
			if v != 0 {
				used[k] = true
			}
		}
	}
	var cols []int
	for k := range used {
		if used[k] {
			cols = append(cols, k)
			continue
		}
		if k < structural && cost[k] < 0 {
			return nil, solver.ErrUnbounded
		}
	}

	shifted := make([]float64, structural)
	if len(keep) > 0 {
		c := make([]float64, len(cols))
		for idx, k := range cols {
			if k < structural {
				c[idx] = cost[k]
			}
		}
		z, err := simplex(c, a, b, keep, cols)
		if err != nil && !errors.Is(err, errNodeInfeasible) && !errors.Is(err, solver.ErrUnbounded) {
			// the pivot sequence depends on row order; a reversed system
			// often avoids an ill-conditioned basis
			reversed := make([]int, len(keep))
			for i, r := range keep {
				reversed[len(keep)-1-i] = r
			}
			z, err = simplex(c, a, b, reversed, cols)
		}
		if err != nil {
			return nil, err
		}
		for idx, k := range cols {
			if k < structural {
				shifted[k] = z[idx]
			}
		}
	}

	values := make([]float64, nv)
	for j := 0; j < nv; j++ {
		values[j] = lo[j]
		if col[j] >= 0 {
			values[j] += shifted[col[j]]
		}
	}
	obj := offset
	for k, v := range shifted {
		obj += cost[k] * v
	}
	return &relaxation{objective: obj, values: values}, nil
}

// simplex solves min cᵀz over the selected rows and columns of [a | b].
// Infeasibility and unboundedness come back as errNodeInfeasible and
// solver.ErrUnbounded.
func simplex(c []float64, a [][]float64, b []float64, rows, cols []int) ([]float64, error) {
	data := make([]float64, 0, len(rows)*len(cols))
	for _, i := range rows {
		for _, k := range cols {
			data = append(data, a[i][k])
		}
	}
	rhs := make([]float64, len(rows))
	for idx, i := range rows {
		rhs[idx] = b[i]
	}
	_, z, err := lp.Simplex(c, mat.NewDense(len(rows), len(cols), data), rhs, simplexTol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return nil, errNodeInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return nil, solver.ErrUnbounded
	case err != nil:
		return nil, fmt.Errorf("bnb: simplex: %w", err)
	}
	return z, nil
}

func holds(sense solver.Sense, rhs float64) bool {
	// the row reads 0 (sense) rhs
	switch sense {
	case solver.LessEqual:
		return rhs >= -feasTol
	case solver.GreaterEqual:
		return rhs <= feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}

// independentRows returns the indices of a maximal linearly independent
// subset of the rows of a, in input order. A dependent row whose right-hand
// side disagrees with the combination it reduces to makes the system
// infeasible.
func independentRows(a [][]float64, b []float64) ([]int, error) {
	type pivotRow struct {
		pivot int
		line  []float64
		rhs   float64
	}
	var basis []pivotRow
	var keep []int
	for i := range a {
		line := append([]float64(nil), a[i]...)
		rhs := b[i]
		scale := 1.0
		for _, v := range line {
			scale = math.Max(scale, math.Abs(v))
		}
		for _, p := range basis {
			f := line[p.pivot]
			if f == 0 {
				continue
			}
			for k, v := range p.line {
				if v != 0 {
					line[k] -= f * v
				}
			}
			rhs -= f * p.rhs
		}
		pivot, best := -1, 0.0
		for k, v := range line {
			if av := math.Abs(v); av > best {
				pivot, best = k, av
			}
		}
		if best <= rankTol*scale {
			if math.Abs(rhs) > feasTol*math.Max(1, math.Abs(b[i])) {
				return nil, errNodeInfeasible
			}
			continue
		}
		inv := 1 / line[pivot]
		for k := range line {
			line[k] *= inv
		}
		basis = append(basis, pivotRow{pivot: pivot, line: line, rhs: rhs * inv})
		keep = append(keep, i)
	}
	return keep, nil
}
