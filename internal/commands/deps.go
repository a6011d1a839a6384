package commands

import (
	"context"
	"time"

	"github.com/susu3304/seisanbot/internal/db"
	"github.com/susu3304/seisanbot/internal/nomikai"
	"github.com/susu3304/seisanbot/internal/solver"
	"go.uber.org/zap"
)

// SettlementStore persists settlement runs.
type SettlementStore interface {
	SaveSettlement(ctx context.Context, s *db.Settlement) (int64, error)
	CompleteTransfer(ctx context.Context, settlementID int64, seq int) error
}

// Deps is what the command handlers need.
type Deps struct {
	Nomikai *nomikai.Service
	Store   SettlementStore
	Solver  solver.Solver
	Logger  *zap.Logger
	// TimeLimit is used when /seisan omits time_limit; limits above
	// MaxTimeLimit are lowered to it.
	TimeLimit       time.Duration
	MaxTimeLimit    time.Duration
	MaxParticipants int
}

func (d *Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// clampLimit maps a requested number of seconds into [1s, MaxTimeLimit].
func (d *Deps) clampLimit(seconds int64) time.Duration {
	if seconds <= 0 {
		return d.TimeLimit
	}
	limit := time.Duration(seconds) * time.Second
	if d.MaxTimeLimit > 0 && limit > d.MaxTimeLimit {
		return d.MaxTimeLimit
	}
	return limit
}

// save stores a run when a store is configured and the command came from a
// guild. It returns 0 when nothing was stored.
func (d *Deps) save(ctx context.Context, s *db.Settlement) int64 {
	if d.Store == nil || s.GuildID == 0 {
		return 0
	}
	id, err := d.Store.SaveSettlement(ctx, s)
	if err != nil {
		d.logger().Error("failed to save settlement", zap.String("run_id", s.RunID), zap.Error(err))
		return 0
	}
	return id
}
