package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a settlement or transfer does not exist.
var ErrNotFound = errors.New("not found")

// Settlement sources. Only nomikai settlements are tracked per member and
// can be completed with /nomikai done, so only they get reminders.
const (
	SourceNomikai = "nomikai"
	SourceSeisan  = "seisan"
)

type Settlement struct {
	ID               int64      `json:"id"`
	RunID            string     `json:"run_id"`
	GuildID          int64      `json:"guild_id,string"`
	ChannelID        string     `json:"channel_id"`
	Source           string     `json:"source"`
	Status           string     `json:"status"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	CreatedAt        time.Time  `json:"created_at"`
	Transfers        []Transfer `json:"transfers,omitempty"`
}

type Transfer struct {
	Seq         int        `json:"seq"`
	PayerID     string     `json:"payer_id"`
	PayeeID     string     `json:"payee_id"`
	Amount      int64      `json:"amount"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SaveSettlement stores s and its transfers in one transaction and returns
// the new settlement ID. Transfer seq values follow slice order.
func (db *DB) SaveSettlement(ctx context.Context, s *Settlement) (int64, error) {
	runID, err := uuid.Parse(s.RunID)
	if err != nil {
		return 0, fmt.Errorf("invalid run id %q: %w", s.RunID, err)
	}

	if s.Source == "" {
		s.Source = SourceNomikai
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO settlements (run_id, guild_id, channel_id, source, status, time_limit_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		runID, s.GuildID, s.ChannelID, s.Source, s.Status, s.TimeLimitSeconds,
	).Scan(&id, &s.CreatedAt); err != nil {
		return 0, err
	}

	for seq, t := range s.Transfers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO settlement_transfers (settlement_id, seq, payer_id, payee_id, amount)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, seq, t.PayerID, t.PayeeID, t.Amount,
		); err != nil {
			return 0, err
		}
		s.Transfers[seq].Seq = seq
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	s.ID = id
	return id, nil
}

// GetSettlement returns a settlement of guildID with its transfers.
func (db *DB) GetSettlement(ctx context.Context, guildID, id int64) (*Settlement, error) {
	var s Settlement
	var runID uuid.UUID
	err := db.pool.QueryRow(ctx,
		`SELECT id, run_id, guild_id, channel_id, source, status, time_limit_seconds, created_at
		 FROM settlements WHERE guild_id = $1 AND id = $2`,
		guildID, id,
	).Scan(&s.ID, &runID, &s.GuildID, &s.ChannelID, &s.Source, &s.Status, &s.TimeLimitSeconds, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.RunID = runID.String()

	transfers, err := db.transfers(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.Transfers = transfers
	return &s, nil
}

// ListSettlements returns the settlements of a guild, newest first, without
// transfers.
func (db *DB) ListSettlements(ctx context.Context, guildID int64) ([]Settlement, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, guild_id, channel_id, source, status, time_limit_seconds, created_at
		 FROM settlements WHERE guild_id = $1
		 ORDER BY created_at DESC, id DESC`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Settlement{}
	for rows.Next() {
		var s Settlement
		var runID uuid.UUID
		if err := rows.Scan(&s.ID, &runID, &s.GuildID, &s.ChannelID, &s.Source, &s.Status, &s.TimeLimitSeconds, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.RunID = runID.String()
		out = append(out, s)
	}
	return out, rows.Err()
}

// PendingTransfers returns the uncompleted transfers of a settlement.
func (db *DB) PendingTransfers(ctx context.Context, settlementID int64) ([]Transfer, error) {
	return db.transfers(ctx, settlementID, true)
}

func (db *DB) transfers(ctx context.Context, settlementID int64, pendingOnly bool) ([]Transfer, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT seq, payer_id, payee_id, amount, completed, completed_at
		 FROM settlement_transfers
		 WHERE settlement_id = $1 AND (NOT $2 OR completed = FALSE)
		 ORDER BY seq`,
		settlementID, pendingOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Transfer{}
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.Seq, &t.PayerID, &t.PayeeID, &t.Amount, &t.Completed, &t.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CompleteTransfer marks one transfer done. Completing it twice keeps the
// first completion time.
func (db *DB) CompleteTransfer(ctx context.Context, settlementID int64, seq int) error {
	ct, err := db.pool.Exec(ctx,
		`UPDATE settlement_transfers
		 SET completed = TRUE, completed_at = COALESCE(completed_at, CURRENT_TIMESTAMP)
		 WHERE settlement_id = $1 AND seq = $2`,
		settlementID, seq,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DueReminders returns nomikai settlements with pending transfers that were
// last reminded (or created) at or before `before`. Only pending transfers
// are loaded.
func (db *DB) DueReminders(ctx context.Context, before time.Time) ([]Settlement, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id, s.run_id, s.guild_id, s.channel_id, s.source, s.status, s.time_limit_seconds, s.created_at
		 FROM settlements s
		 WHERE s.source = $2
		   AND COALESCE(s.reminded_at, s.created_at) <= $1
		   AND EXISTS (
			 SELECT 1 FROM settlement_transfers t
			 WHERE t.settlement_id = s.id AND t.completed = FALSE
		   )
		 ORDER BY s.id`,
		before, SourceNomikai,
	)
	if err != nil {
		return nil, err
	}
	var out []Settlement
	for rows.Next() {
		var s Settlement
		var runID uuid.UUID
		if err := rows.Scan(&s.ID, &runID, &s.GuildID, &s.ChannelID, &s.Source, &s.Status, &s.TimeLimitSeconds, &s.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		s.RunID = runID.String()
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		pending, err := db.PendingTransfers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Transfers = pending
	}
	return out, nil
}

// MarkReminded records that a reminder for the settlement was posted at at.
func (db *DB) MarkReminded(ctx context.Context, settlementID int64, at time.Time) error {
	_, err := db.pool.Exec(ctx, `UPDATE settlements SET reminded_at = $2 WHERE id = $1`, settlementID, at)
	return err
}
