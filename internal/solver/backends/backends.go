// Package backends opens a solver backend by name.
package backends

import (
	"fmt"
	"sort"

	"github.com/susu3304/seisanbot/internal/solver"
	"github.com/susu3304/seisanbot/internal/solver/bnb"
	"github.com/susu3304/seisanbot/internal/solver/cbc"
	"go.uber.org/zap"
)

const (
	BranchAndBound = "bnb"
	CBC            = "cbc"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	CBCPath string
}

// Names lists the known backend names.
func Names() []string {
	names := []string{BranchAndBound, CBC}
	sort.Strings(names)
	return names
}

// Open returns the backend named by cfg.Backend. The cbc backend requires
// its executable to be present.
func Open(cfg Config, logger *zap.Logger) (solver.Solver, error) {
	switch cfg.Backend {
	case BranchAndBound, "":
		return bnb.New(logger), nil
	case CBC:
		s := cbc.New(cfg.CBCPath, logger)
		if !s.Available() {
			return nil, fmt.Errorf("solver backend %q: executable %q not found", CBC, cfg.CBCPath)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown solver backend %q (known: %v)", cfg.Backend, Names())
	}
}
