package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/susu3304/seisanbot/internal/db"
	"github.com/susu3304/seisanbot/internal/settle"
	"github.com/susu3304/seisanbot/internal/solver"
	"go.uber.org/zap"
)

// HandleSeisan settles the balances given in the command options.
func HandleSeisan(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps) {
	data := i.ApplicationCommandData()
	raw := getStringOption(data.Options, "balances")
	if raw == nil {
		respondText(s, i, "balances の指定が必要です")
		return
	}
	balances, err := parseBalances(*raw)
	if err != nil {
		respondText(s, i, err.Error())
		return
	}
	if err := settle.Validate(balances); err != nil {
		respondText(s, i, inputMessage(err))
		return
	}
	if deps.MaxParticipants > 0 && len(balances) > deps.MaxParticipants {
		respondText(s, i, fmt.Sprintf("参加者は最大 %d 名までです", deps.MaxParticipants))
		return
	}
	var seconds int64
	if v := getIntOption(data.Options, "time_limit"); v != nil {
		seconds = *v
	}
	limit := deps.clampLimit(seconds)

	if err := deferResponse(s, i); err != nil {
		deps.logger().Warn("failed to defer response", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), limit+time.Minute)
	defer cancel()
	runID := uuid.NewString()
	res, err := settle.Settle(ctx, balances, settle.Options{
		TimeLimit: limit,
		Solver:    deps.Solver,
		Logger:    deps.logger().With(zap.String("guild_id", i.GuildID)),
		RunID:     runID,
	})

	msg, transfers, status := seisanOutcome(res, err)
	if transfers != nil {
		deps.save(ctx, seisanRecord(runID, i.GuildID, i.ChannelID, status, limit, transfers))
	}
	if err := editResponse(s, i, msg); err != nil {
		deps.logger().Warn("failed to edit response", zap.Error(err))
	}
}

// seisanRecord is the stored form of a /seisan run. Its payers are free-form
// names, so it is kept as history only and never reminded.
func seisanRecord(runID, guildID, channelID string, status solver.Status, limit time.Duration, transfers []settle.Transfer) *db.Settlement {
	return &db.Settlement{
		RunID:            runID,
		GuildID:          ParseGuildID(guildID),
		ChannelID:        channelID,
		Source:           db.SourceSeisan,
		Status:           status.String(),
		TimeLimitSeconds: int(limit / time.Second),
		Transfers:        toRows(transfers),
	}
}

// seisanOutcome turns a settlement result into the reply text and the
// transfers worth storing (nil when there is nothing to store).
func seisanOutcome(res *settle.Result, err error) (string, []settle.Transfer, solver.Status) {
	var timeout *settle.TimeoutError
	switch {
	case err == nil:
		return formatTransfers(res.Transfers), res.Transfers, res.Status
	case errors.As(err, &timeout) && timeout.HasSolution():
		return formatTransfers(timeout.BestKnown) + "※ 時間内に最適解を確認できなかったため、見つかった中で最良の結果です",
			timeout.BestKnown, solver.StatusFeasibleTimeout
	case errors.As(err, &timeout):
		return "時間内に精算方法が見つかりませんでした。time_limit を延ばして再実行してください", nil, solver.StatusTimeout
	default:
		if msg := inputMessage(err); msg != "" {
			return msg, nil, solver.StatusError
		}
		return "精算の計算に失敗しました", nil, solver.StatusError
	}
}

// inputMessage explains a rejected input, or returns "" for other errors.
func inputMessage(err error) string {
	var (
		unbalanced *settle.UnbalancedInputError
		degenerate *settle.DegenerateInputError
		duplicate  *settle.DuplicateParticipantError
	)
	switch {
	case errors.As(err, &unbalanced):
		return fmt.Sprintf("%dptずれがあります。", unbalanced.Residual)
	case errors.As(err, &degenerate):
		return "2人以上の入力が必要です"
	case errors.As(err, &duplicate):
		return fmt.Sprintf("%s が複数回入力されています", duplicate.Participant)
	}
	return ""
}

func toRows(transfers []settle.Transfer) []db.Transfer {
	rows := make([]db.Transfer, 0, len(transfers))
	for _, t := range transfers {
		rows = append(rows, db.Transfer{PayerID: string(t.From), PayeeID: string(t.To), Amount: t.Amount})
	}
	return rows
}
