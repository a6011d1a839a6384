package cbc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/susu3304/seisanbot/internal/solver"
	"go.uber.org/zap"
)

// DefaultPath is the executable looked up on PATH when none is configured.
const DefaultPath = "cbc"

// killGrace is how long cbc may overrun its own time limit before the
// process is killed.
const killGrace = 10 * time.Second

// Solver runs the COIN-OR cbc executable on an LP file.
type Solver struct {
	path   string
	logger *zap.Logger
}

var _ solver.Solver = (*Solver)(nil)

// New returns a cbc backend using the executable at path (DefaultPath when
// empty). The executable is resolved on each Solve.
func New(path string, logger *zap.Logger) *Solver {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{path: path, logger: logger.Named("cbc")}
}

// Name implements solver.Solver.
func (s *Solver) Name() string { return "cbc" }

// Available reports whether the configured executable can be found.
func (s *Solver) Available() bool {
	_, err := exec.LookPath(s.path)
	return err == nil
}

// Solve implements solver.Solver.
func (s *Solver) Solve(ctx context.Context, m *solver.Model, timeLimit time.Duration) (*solver.Solution, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if timeLimit <= 0 {
		return nil, fmt.Errorf("cbc: time limit must be positive, got %s", timeLimit)
	}
	bin, err := exec.LookPath(s.path)
	if err != nil {
		return nil, fmt.Errorf("cbc: executable %q not found: %w", s.path, err)
	}

	dir, err := os.MkdirTemp("", "seisan-cbc-*")
	if err != nil {
		return nil, fmt.Errorf("cbc: create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	if err := writeLPFile(lpPath, m); err != nil {
		return nil, err
	}

	seconds := int(math.Ceil(timeLimit.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	runCtx, cancel := context.WithTimeout(ctx, timeLimit+killGrace)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, bin, lpPath,
		"sec", strconv.Itoa(seconds),
		"timeMode", "elapsed",
		"branch",
		"printingOptions", "all",
		"solution", solPath,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("cbc killed after overrunning its time limit", zap.Duration("elapsed", elapsed))
			return &solver.Solution{Status: solver.StatusTimeout, Elapsed: elapsed}, nil
		}
		return nil, fmt.Errorf("cbc: run failed: %w: %s", runErr, tail(out.Bytes(), 512))
	}

	f, err := os.Open(solPath)
	if err != nil {
		return nil, fmt.Errorf("cbc: no solution file: %w: %s", err, tail(out.Bytes(), 512))
	}
	defer f.Close()
	sf, err := parseSolution(f)
	if err != nil {
		return nil, err
	}

	sol := &solver.Solution{Status: sf.classify(), Elapsed: elapsed}
	if sol.Status == solver.StatusError {
		return nil, fmt.Errorf("cbc: unrecognised status %q", sf.status)
	}
	if sol.Status.HasSolution() {
		sol.Values = sf.assignment(m)
		sol.Objective = m.Evaluate(sol.Values)
	}
	s.logger.Debug("cbc finished",
		zap.String("model", m.Name),
		zap.String("status_line", sf.status),
		zap.Stringer("status", sol.Status),
		zap.Duration("elapsed", elapsed),
	)
	return sol, nil
}

func writeLPFile(path string, m *solver.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cbc: create lp file: %w", err)
	}
	if err := WriteLP(f, m); err != nil {
		f.Close()
		return fmt.Errorf("cbc: write lp file: %w", err)
	}
	return f.Close()
}

func tail(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
