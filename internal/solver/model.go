package solver

import (
	"fmt"
	"math"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
}

// VarID indexes Model.Vars.
type VarID int

// Var is a decision variable with box bounds. Upper may be +Inf.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is one coef*var product of a linear expression.
type Term struct {
	Var  VarID
	Coef float64
}

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Constraint is Σ Terms (Sense) RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a minimization MIP. Start, when set, is a warm-start assignment
// indexed like Vars.
type Model struct {
	Name        string
	Vars        []Var
	Constraints []Constraint
	Objective   []Term
	Start       []float64
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVar appends a variable and returns its ID. Binary variables always get
// the bounds [0, 1].
func (m *Model) AddVar(name string, kind VarKind, lower, upper float64) VarID {
	if kind == Binary {
		lower, upper = 0, 1
	}
	m.Vars = append(m.Vars, Var{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return VarID(len(m.Vars) - 1)
}

// AddConstraint appends a linear constraint.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// Minimize sets the objective.
func (m *Model) Minimize(terms []Term) {
	m.Objective = terms
}

// SetStart records a warm-start assignment.
func (m *Model) SetStart(values []float64) {
	m.Start = values
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.Vars) }

// Validate checks the model is well formed: term indices in range, bounds
// ordered and finite from below, start sized like Vars.
func (m *Model) Validate() error {
	n := len(m.Vars)
	for i, v := range m.Vars {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || math.IsInf(v.Lower, 0) {
			return fmt.Errorf("%w: variable %q has invalid bounds [%v, %v]", ErrInvalidModel, v.Name, v.Lower, v.Upper)
		}
		if v.Lower > v.Upper {
			return fmt.Errorf("%w: variable %q has lower bound above upper bound", ErrInvalidModel, m.Vars[i].Name)
		}
	}
	checkTerms := func(where string, terms []Term) error {
		for _, t := range terms {
			if int(t.Var) < 0 || int(t.Var) >= n {
				return fmt.Errorf("%w: %s references unknown variable %d", ErrInvalidModel, where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%w: %s has non-finite coefficient", ErrInvalidModel, where)
			}
		}
		return nil
	}
	if err := checkTerms("objective", m.Objective); err != nil {
		return err
	}
	for _, c := range m.Constraints {
		if err := checkTerms("constraint "+c.Name, c.Terms); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("%w: constraint %q has non-finite right-hand side", ErrInvalidModel, c.Name)
		}
	}
	if m.Start != nil && len(m.Start) != n {
		return fmt.Errorf("%w: start has %d values for %d variables", ErrInvalidModel, len(m.Start), n)
	}
	return nil
}

// Evaluate returns the objective value of an assignment.
func (m *Model) Evaluate(values []float64) float64 {
	return dot(m.Objective, values)
}

// Check reports whether values satisfy every bound, integrality requirement
// and constraint within tol. The returned error names the first violation.
func (m *Model) Check(values []float64, tol float64) error {
	if len(values) != len(m.Vars) {
		return fmt.Errorf("assignment has %d values for %d variables", len(values), len(m.Vars))
	}
	for i, v := range m.Vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			return fmt.Errorf("variable %q = %v outside [%v, %v]", v.Name, x, v.Lower, v.Upper)
		}
		if v.Kind != Continuous && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("variable %q = %v is not integral", v.Name, x)
		}
	}
	for _, c := range m.Constraints {
		lhs := dot(c.Terms, values)
		var ok bool
		switch c.Sense {
		case LessEqual:
			ok = lhs <= c.RHS+tol
		case GreaterEqual:
			ok = lhs >= c.RHS-tol
		case Equal:
			ok = math.Abs(lhs-c.RHS) <= tol
		}
		if !ok {
			return fmt.Errorf("constraint %q violated: %v %s %v", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}

func dot(terms []Term, values []float64) float64 {
	var s float64
	for _, t := range terms {
		s += t.Coef * values[t.Var]
	}
	return s
}
