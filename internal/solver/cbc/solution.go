package cbc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/susu3304/seisanbot/internal/solver"
)

// noSolutionObjective is what cbc prints as the objective when it stopped
// without an integer solution.
const noSolutionObjective = 1e50

// solutionFile is the parsed content of a cbc "solution" file.
type solutionFile struct {
	status    string
	objective float64
	values    map[string]float64
}

// parseSolution reads a cbc solution file written with
// "printingOptions all": a status line followed by
// "index name value reducedCost" rows. Rows whose value violates a bound are
// prefixed with "**".
func parseSolution(r io.Reader) (*solutionFile, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("cbc: empty solution file")
	}
	sf := &solutionFile{values: make(map[string]float64)}
	head := strings.TrimSpace(sc.Text())
	sf.status = head
	if i := strings.Index(head, "objective value"); i >= 0 {
		raw := strings.TrimSpace(head[i+len("objective value"):])
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			sf.objective = v
		}
	}

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cbc: bad value for %s: %w", fields[1], err)
		}
		sf.values[fields[1]] = v
	}
	return sf, sc.Err()
}

// classify maps the status line to a solver status. Columns and rows share
// one namespace in the file; rows are simply never looked up.
func (sf *solutionFile) classify() solver.Status {
	s := strings.ToLower(sf.status)
	switch {
	case strings.HasPrefix(s, "optimal"):
		return solver.StatusOptimal
	case strings.HasPrefix(s, "infeasible"), strings.HasPrefix(s, "integer infeasible"):
		return solver.StatusInfeasible
	case strings.HasPrefix(s, "stopped"):
		if len(sf.values) > 0 && sf.objective < noSolutionObjective && !strings.Contains(s, "no solution") {
			return solver.StatusFeasibleTimeout
		}
		return solver.StatusTimeout
	default:
		return solver.StatusError
	}
}

// assignment orders the parsed values like m.Vars. Variables cbc omitted
// are zero.
func (sf *solutionFile) assignment(m *solver.Model) []float64 {
	out := make([]float64, len(m.Vars))
	for i, v := range m.Vars {
		out[i] = sf.values[v.Name]
	}
	return out
}
