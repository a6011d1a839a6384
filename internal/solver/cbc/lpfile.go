package cbc

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/susu3304/seisanbot/internal/solver"
)

// lpLineWidth keeps expression lines short; the CoinLp reader rejects very
// long lines.
const lpLineWidth = 200

// WriteLP writes m in CPLEX LP format. Variable and constraint names are
// written as given, so they must be valid LP identifiers.
func WriteLP(w io.Writer, m *solver.Model) error {
	bw := bufio.NewWriter(w)
	name := m.Name
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(bw, "\\* %s *\\\n", name)

	bw.WriteString("Minimize\n")
	writeExpr(bw, "obj", m, m.Objective)
	bw.WriteString("\n")

	bw.WriteString("Subject To\n")
	for i, c := range m.Constraints {
		label := c.Name
		if label == "" {
			label = "c" + strconv.Itoa(i)
		}
		writeExpr(bw, label, m, c.Terms)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatNum(c.RHS))
	}

	bw.WriteString("Bounds\n")
	for _, v := range m.Vars {
		if v.Kind == solver.Binary {
			continue
		}
		switch {
		case v.Lower == v.Upper:
			fmt.Fprintf(bw, " %s = %s\n", v.Name, formatNum(v.Lower))
		case math.IsInf(v.Upper, 1):
			fmt.Fprintf(bw, " %s >= %s\n", v.Name, formatNum(v.Lower))
		default:
			fmt.Fprintf(bw, " %s <= %s <= %s\n", formatNum(v.Lower), v.Name, formatNum(v.Upper))
		}
	}

	writeKind(bw, "Generals", m, solver.Integer)
	writeKind(bw, "Binaries", m, solver.Binary)
	bw.WriteString("End\n")
	return bw.Flush()
}

// writeExpr writes "label: a x + b y ..." without a trailing newline. An
// empty expression is written as a zero multiple of the first variable.
func writeExpr(bw *bufio.Writer, label string, m *solver.Model, terms []solver.Term) {
	line := " " + label + ":"
	wrote := false
	for _, t := range terms {
		if t.Coef == 0 {
			continue
		}
		part := formatTerm(t.Coef, m.Vars[t.Var].Name, !wrote)
		if len(line)+len(part) > lpLineWidth {
			bw.WriteString(line + "\n")
			line = ""
		}
		line += part
		wrote = true
	}
	if !wrote && len(m.Vars) > 0 {
		line += " 0 " + m.Vars[0].Name
	}
	bw.WriteString(line)
}

func writeKind(bw *bufio.Writer, section string, m *solver.Model, kind solver.VarKind) {
	var names []string
	for _, v := range m.Vars {
		if v.Kind == kind {
			names = append(names, v.Name)
		}
	}
	if len(names) == 0 {
		return
	}
	bw.WriteString(section + "\n")
	line := ""
	for _, n := range names {
		if len(line)+len(n)+1 > lpLineWidth {
			bw.WriteString(line + "\n")
			line = ""
		}
		line += " " + n
	}
	bw.WriteString(line + "\n")
}

func formatTerm(coef float64, name string, first bool) string {
	sign := "+"
	if coef < 0 {
		sign = "-"
		coef = -coef
	}
	var b strings.Builder
	b.WriteByte(' ')
	if !first || sign == "-" {
		b.WriteString(sign)
		b.WriteByte(' ')
	}
	if coef != 1 {
		b.WriteString(formatNum(coef))
		b.WriteByte(' ')
	}
	b.WriteString(name)
	return b.String()
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
